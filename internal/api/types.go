package api

import "github.com/kaolin/runebot/internal/geometry"

// Snapshot types mirror the telemetry endpoint JSON bodies. Extra fields in
// responses are tolerated; absent optional fields decode to zero values or
// nil pointers.

// StatEntry is one row of /stats.
type StatEntry struct {
	Stat          string `json:"stat"`
	Level         int    `json:"level"`
	BoostedLevel  int    `json:"boostedLevel"`
	XP            int64  `json:"xp"`
	XPToNextLevel int64  `json:"xpToNextLevel"`
}

// PlayerSnapshot is the /player body.
type PlayerSnapshot struct {
	Name            string  `json:"name"`
	CombatLevel     int     `json:"combatLevel"`
	Health          int     `json:"health"`
	MaxHealth       int     `json:"maxHealth"`
	Prayer          int     `json:"prayer"`
	MaxPrayer       int     `json:"maxPrayer"`
	RunEnergy       int     `json:"runEnergy"`
	SpecialAttack   int     `json:"specialAttack"`
	Weight          int     `json:"weight"`
	IsAnimating     bool    `json:"isAnimating"`
	AnimationID     int     `json:"animationId"`
	InteractingWith *string `json:"interactingWith"`
}

// HealthPercent returns current health as a 0-100 percentage.
func (p PlayerSnapshot) HealthPercent() int {
	if p.MaxHealth <= 0 {
		return 0
	}
	return p.Health * 100 / p.MaxHealth
}

// WorldPos is the world half of /coords.
type WorldPos struct {
	X        int32 `json:"x"`
	Y        int32 `json:"y"`
	Plane    int8  `json:"plane"`
	RegionID int32 `json:"regionID"`
	RegionX  int32 `json:"regionX"`
	RegionY  int32 `json:"regionY"`
}

// CoordsSnapshot is the /coords body.
type CoordsSnapshot struct {
	World WorldPos `json:"world"`
	Local struct {
		SceneX int32 `json:"sceneX"`
		SceneY int32 `json:"sceneY"`
	} `json:"local"`
}

// Coord converts the world half into a geometry coordinate.
func (c CoordsSnapshot) Coord() geometry.WorldCoord {
	return geometry.WorldCoord{X: c.World.X, Y: c.World.Y, Plane: c.World.Plane}
}

// CombatTarget is the optional target block of /combat.
type CombatTarget struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	CombatLevel int    `json:"combatLevel"`
	Health      int    `json:"health"`
	MaxHealth   int    `json:"maxHealth"`
	IsDying     bool   `json:"isDying"`
	Position    struct {
		X     int32 `json:"x"`
		Y     int32 `json:"y"`
		Plane int8  `json:"plane"`
	} `json:"position"`
}

// CombatSnapshot is the /combat body.
type CombatSnapshot struct {
	InCombat       bool          `json:"inCombat"`
	AutoRetaliate  bool          `json:"autoRetaliate"`
	Target         *CombatTarget `json:"target"`
}

// AnimationSnapshot is the /animation body.
type AnimationSnapshot struct {
	AnimationID   int  `json:"animationId"`
	PoseAnimation int  `json:"poseAnimation"`
	IsAnimating   bool `json:"isAnimating"`
	IsMoving      bool `json:"isMoving"`
}

// ItemSlot is one entry of /inv, /equip or /bank: a container slot.
// ID -1 means empty.
type ItemSlot struct {
	ID       int `json:"id"`
	Quantity int `json:"quantity"`
	Slot     int `json:"slot"`

	// Widget overlays the on-screen box for bank items, when present.
	Widget *ItemWidget `json:"widget"`
}

// ItemWidget is the optional screen box for a container slot.
type ItemWidget struct {
	X       int  `json:"x"`
	Y       int  `json:"y"`
	Width   int  `json:"width"`
	Height  int  `json:"height"`
	Visible bool `json:"visible"`
}

// Equipment slot indices, matching the /equip layout.
const (
	EquipHead = iota
	EquipCape
	EquipNeck
	EquipWeapon
	EquipBody
	EquipShield
	EquipLegs
	EquipHands
	EquipFeet
	EquipRing
	EquipAmmo
)

// HullPoints is the convex-hull polygon attached to viewport entities.
type HullPoints struct {
	Points []struct {
		X int `json:"x"`
		Y int `json:"y"`
	} `json:"points"`
}

// Polygon converts the wire hull into a geometry polygon, or nil when absent.
func (h *HullPoints) Polygon() *geometry.Polygon {
	if h == nil || len(h.Points) == 0 {
		return nil
	}
	vs := make([]geometry.Point, len(h.Points))
	for i, p := range h.Points {
		vs[i] = geometry.Point{X: p.X, Y: p.Y}
	}
	poly := geometry.NewPolygon(vs)
	return &poly
}

// NpcSnapshot is one entry of /npcs or /npcs_in_viewport.
type NpcSnapshot struct {
	ID              int         `json:"id"`
	Name            string      `json:"name"`
	CombatLevel     int         `json:"combatLevel"`
	WorldX          int32       `json:"worldX"`
	WorldY          int32       `json:"worldY"`
	Plane           int8        `json:"plane"`
	ScreenX         *int        `json:"x"`
	ScreenY         *int        `json:"y"`
	Hull            *HullPoints `json:"hull"`
	InteractingWith *string     `json:"interactingWith"`
	IsDying         bool        `json:"isDying"`
	Animation       int         `json:"animation"`
	HealthRatio     int         `json:"healthRatio"`
	HealthScale     int         `json:"healthScale"`
	OverheadText    string      `json:"overheadText"`
	OverheadIcon    int         `json:"overheadIcon"`
}

// HealthPercent converts ratio/scale into 0-100, or -1 when no bar is shown.
func (n NpcSnapshot) HealthPercent() int {
	if n.HealthScale <= 0 {
		return -1
	}
	return n.HealthRatio * 100 / n.HealthScale
}

// Coord returns the NPC world position.
func (n NpcSnapshot) Coord() geometry.WorldCoord {
	return geometry.WorldCoord{X: n.WorldX, Y: n.WorldY, Plane: n.Plane}
}

// ObjectSnapshot is one entry of /objects or /objects_in_viewport.
type ObjectSnapshot struct {
	ID      int         `json:"id"`
	Name    string      `json:"name"`
	WorldX  int32       `json:"worldX"`
	WorldY  int32       `json:"worldY"`
	Plane   int8        `json:"plane"`
	ScreenX *int        `json:"x"`
	ScreenY *int        `json:"y"`
	Hull    *HullPoints `json:"hull"`
}

// Coord returns the object world position.
func (o ObjectSnapshot) Coord() geometry.WorldCoord {
	return geometry.WorldCoord{X: o.WorldX, Y: o.WorldY, Plane: o.Plane}
}

// GroundItemSnapshot is one entry of /grounditems.
type GroundItemSnapshot struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	WorldX   int32  `json:"worldX"`
	WorldY   int32  `json:"worldY"`
	Plane    int8   `json:"plane"`
}

// CameraSnapshot is the /camera body. Yaw ∈ [0,2048), pitch ∈ [128,512],
// scale ∈ [300,650].
type CameraSnapshot struct {
	Yaw   int `json:"yaw"`
	Pitch int `json:"pitch"`
	Scale int `json:"scale"`
	X     int `json:"x"`
	Y     int `json:"y"`
	Z     int `json:"z"`
}

// RotationSnapshot is the /camera_rotation body: the API-computed answer to
// "what drag makes tile (x,y,plane) visible".
type RotationSnapshot struct {
	Visible       bool `json:"visible"`
	CurrentYaw    int  `json:"currentYaw"`
	CurrentPitch  int  `json:"currentPitch"`
	CurrentScale  int  `json:"currentScale"`
	TargetYaw     int  `json:"targetYaw"`
	TargetPitch   int  `json:"targetPitch"`
	TargetScale   int  `json:"targetScale"`
	DragPixelsX   int  `json:"dragPixelsX"`
	DragPixelsY   int  `json:"dragPixelsY"`
	YawDistance   int  `json:"yawDistance"`
	PitchDistance int  `json:"pitchDistance"`
	ScreenX       *int `json:"screenX"`
	ScreenY       *int `json:"screenY"`
}

// MenuEntry is one line of the right-click context menu, top first.
type MenuEntry struct {
	Option string `json:"option"`
	Target string `json:"target"`
}

// MenuSnapshot is the /menu body.
type MenuSnapshot struct {
	IsOpen  bool        `json:"isOpen"`
	Entries []MenuEntry `json:"entries"`
	X       int         `json:"x"`
	Y       int         `json:"y"`
	Width   int         `json:"width"`
	Height  int         `json:"height"`
}

// WidgetsSnapshot is the /widgets body: open-interface flags.
type WidgetsSnapshot struct {
	IsBankOpen        bool `json:"isBankOpen"`
	IsShopOpen        bool `json:"isShopOpen"`
	IsDialogueOpen    bool `json:"isDialogueOpen"`
	IsInventoryOpen   bool `json:"isInventoryOpen"`
	IsLogoutPanelOpen bool `json:"isLogoutPanelOpen"`
}

// ViewportSnapshot is the /viewport body.
type ViewportSnapshot struct {
	Width        int `json:"width"`
	Height       int `json:"height"`
	XOffset      int `json:"xOffset"`
	YOffset      int `json:"yOffset"`
	CanvasMouseX int `json:"canvasMouseX"`
	CanvasMouseY int `json:"canvasMouseY"`
}

// GameArea returns the clickable game rectangle as a region.
func (v ViewportSnapshot) GameArea() geometry.Region {
	return geometry.NewRegion(v.XOffset, v.YOffset, v.Width, v.Height)
}

// GameStateSnapshot is the /gameState body.
type GameStateSnapshot struct {
	State    string `json:"state"`
	LoggedIn bool   `json:"loggedIn"`
}

// NearestSnapshot is the /nearest_by_id body.
type NearestSnapshot struct {
	Found    bool    `json:"found"`
	Type     string  `json:"type"`
	WorldX   int32   `json:"worldX"`
	WorldY   int32   `json:"worldY"`
	Plane    int8    `json:"plane"`
	Distance float64 `json:"distance"`
	Name     string  `json:"name"`
}

// EntityKind selects NPC or object lookups.
type EntityKind string

const (
	KindNpc    EntityKind = "npc"
	KindObject EntityKind = "object"
)
