// Package interact resolves game entities to screen targets and executes
// context-menu aware clicks against them.
package interact

import (
	"math/rand"
	"strings"
	"time"

	"github.com/kaolin/runebot/internal/api"
	"github.com/kaolin/runebot/internal/geometry"
	"github.com/kaolin/runebot/internal/input"
	"go.uber.org/zap"
)

// Telemetry is the interactor's read surface of the API client.
type Telemetry interface {
	Coords() (api.CoordsSnapshot, bool)
	NpcsInViewport() ([]api.NpcSnapshot, bool)
	ObjectsInViewport() ([]api.ObjectSnapshot, bool)
	NearestByID(id int, kind api.EntityKind) (api.NearestSnapshot, bool)
	Menu() (api.MenuSnapshot, bool)
	Viewport() (api.ViewportSnapshot, bool)
}

// CameraController rotates the camera toward off-screen entities.
type CameraController interface {
	MakeVisible(target geometry.WorldCoord) bool
}

// Entity is a clickable NPC or object resolved from telemetry.
type Entity struct {
	ID              int
	Name            string
	Kind            api.EntityKind
	Coord           geometry.WorldCoord
	Hull            *geometry.Polygon
	ScreenX         *int
	ScreenY         *int
	InteractingWith *string
	IsDying         bool
}

const maxClickRetries = 2

// Interactor finds and clicks entities. Owned by a single bot loop.
type Interactor struct {
	tel    Telemetry
	camera CameraController
	synth  *input.Synthesizer
	rng    *rand.Rand
	log    *zap.Logger

	sleep func(time.Duration)
}

// NewInteractor wires an interactor.
func NewInteractor(tel Telemetry, camera CameraController, synth *input.Synthesizer, rng *rand.Rand, log *zap.Logger) *Interactor {
	return &Interactor{
		tel:    tel,
		camera: camera,
		synth:  synth,
		rng:    rng,
		log:    log,
		sleep:  time.Sleep,
	}
}

// Find locates the nearest entity whose id is in ids, rotating the camera
// toward an off-screen match when the viewport holds none.
func (it *Interactor) Find(ids []int, kind api.EntityKind) (Entity, bool) {
	if e, ok := it.findInViewport(ids, kind); ok {
		return e, true
	}

	// Nothing on screen: locate the closest global match and bring it
	// into view.
	target, ok := it.nearestGlobal(ids, kind)
	if !ok {
		return Entity{}, false
	}
	if it.camera == nil || !it.camera.MakeVisible(target) {
		return Entity{}, false
	}
	return it.findInViewport(ids, kind)
}

func (it *Interactor) findInViewport(ids []int, kind api.EntityKind) (Entity, bool) {
	coords, ok := it.tel.Coords()
	if !ok {
		return Entity{}, false
	}
	player := coords.Coord()

	var candidates []Entity
	switch kind {
	case api.KindNpc:
		npcs, ok := it.tel.NpcsInViewport()
		if !ok {
			return Entity{}, false
		}
		for _, n := range npcs {
			if !matchesID(n.ID, ids) || n.IsDying {
				continue
			}
			candidates = append(candidates, Entity{
				ID: n.ID, Name: n.Name, Kind: kind,
				Coord: n.Coord(), Hull: n.Hull.Polygon(),
				ScreenX: n.ScreenX, ScreenY: n.ScreenY,
				InteractingWith: n.InteractingWith,
			})
		}
	case api.KindObject:
		objs, ok := it.tel.ObjectsInViewport()
		if !ok {
			return Entity{}, false
		}
		for _, o := range objs {
			if !matchesID(o.ID, ids) {
				continue
			}
			candidates = append(candidates, Entity{
				ID: o.ID, Name: o.Name, Kind: kind,
				Coord: o.Coord(), Hull: o.Hull.Polygon(),
				ScreenX: o.ScreenX, ScreenY: o.ScreenY,
			})
		}
	}
	if len(candidates) == 0 {
		return Entity{}, false
	}
	return it.pickNearest(player, candidates), true
}

func matchesID(id int, ids []int) bool {
	for _, want := range ids {
		if id == want {
			return true
		}
	}
	return false
}

// pickNearest returns the candidate closest to the player, choosing
// uniformly among equidistant ones.
func (it *Interactor) pickNearest(player geometry.WorldCoord, candidates []Entity) Entity {
	best := player.Distance(candidates[0].Coord)
	tied := candidates[:1]
	for _, c := range candidates[1:] {
		d := player.Distance(c.Coord)
		switch {
		case d < best:
			best = d
			tied = []Entity{c}
		case d == best:
			tied = append(tied, c)
		}
	}
	return tied[it.rng.Intn(len(tied))]
}

// nearestGlobal asks telemetry per id and keeps the closest hit.
func (it *Interactor) nearestGlobal(ids []int, kind api.EntityKind) (geometry.WorldCoord, bool) {
	var (
		bestCoord geometry.WorldCoord
		bestDist  float64
		found     bool
	)
	for _, id := range ids {
		n, ok := it.tel.NearestByID(id, kind)
		if !ok {
			continue
		}
		if !found || n.Distance < bestDist {
			bestCoord = geometry.WorldCoord{X: n.WorldX, Y: n.WorldY, Plane: n.Plane}
			bestDist = n.Distance
			found = true
		}
	}
	return bestCoord, found
}

// Click hovers a random point of the entity's hull and selects actionText,
// left-clicking when it is the default action and walking the right-click
// menu otherwise.
func (it *Interactor) Click(e Entity, actionText string) bool {
	vp, ok := it.tel.Viewport()
	if !ok {
		return false
	}
	area := vp.GameArea()

	point, ok := it.aimPoint(e, area)
	if !ok {
		return false
	}
	return it.clickAt(point, area, actionText)
}

// ClickAt selects actionText at an arbitrary screen point, for UI targets
// that carry no entity hull: inventory slots, bank widgets, buttons.
func (it *Interactor) ClickAt(point geometry.Point, actionText string) bool {
	vp, ok := it.tel.Viewport()
	if !ok {
		return false
	}
	return it.clickAt(point, vp.GameArea(), actionText)
}

func (it *Interactor) clickAt(point geometry.Point, area geometry.Region, actionText string) bool {
	it.synth.MoveTo(point.X, point.Y, it.randRange(200*time.Millisecond, 400*time.Millisecond), 0.8)
	it.sleep(it.randRange(80*time.Millisecond, 160*time.Millisecond))

	menu, ok := it.tel.Menu()
	if !ok {
		return false
	}
	if len(menu.Entries) > 0 && containsFold(menu.Entries[0].Option, actionText) {
		it.synth.Click(input.ButtonLeft)
		return true
	}

	// Not the default action: open the context menu and pick the row.
	it.synth.Click(input.ButtonRight)
	it.sleep(it.randRange(150*time.Millisecond, 300*time.Millisecond))

	menu, ok = it.tel.Menu()
	if !ok || !menu.IsOpen {
		return false
	}
	row := -1
	for i, entry := range menu.Entries {
		if containsFold(entry.Option, actionText) {
			row = i
			break
		}
	}
	if row < 0 {
		it.closeMenu(menu, area)
		return false
	}

	// Row i sits below the header: rows are 1-based with a uniform height
	// of menuHeight/(entries+1).
	entryHeight := menu.Height / (len(menu.Entries) + 1)
	if entryHeight <= 0 {
		it.closeMenu(menu, area)
		return false
	}
	rowRegion := geometry.NewRegion(menu.X+2, menu.Y+entryHeight*(row+1)+1, menu.Width-4, entryHeight-2)
	p := rowRegion.RandomPoint(it.rng)
	it.synth.MoveTo(p.X, p.Y, it.randRange(150*time.Millisecond, 300*time.Millisecond), 0.5)
	it.synth.Click(input.ButtonLeft)
	return true
}

// Interact is Find followed by Click, with a couple of retries. A failed
// click nudges the camera before the next attempt.
func (it *Interactor) Interact(ids []int, kind api.EntityKind, actionText string) bool {
	for attempt := 0; attempt <= maxClickRetries; attempt++ {
		e, ok := it.Find(ids, kind)
		if !ok {
			return false
		}
		if it.Click(e, actionText) {
			return true
		}
		it.log.Debug("click attempt failed",
			zap.Int("entity_id", e.ID), zap.String("action", actionText))
		if attempt < maxClickRetries && it.camera != nil {
			it.camera.MakeVisible(e.Coord)
		}
	}
	return false
}

// aimPoint samples inside the hull when one is present, else falls back to
// the reported screen point.
func (it *Interactor) aimPoint(e Entity, area geometry.Region) (geometry.Point, bool) {
	if e.Hull != nil {
		return area.Clamp(e.Hull.RandomPoint(it.rng)), true
	}
	if e.ScreenX != nil && e.ScreenY != nil {
		return area.Clamp(geometry.Point{X: *e.ScreenX, Y: *e.ScreenY}), true
	}
	return geometry.Point{}, false
}

// closeMenu moves the pointer well away from the open menu box.
func (it *Interactor) closeMenu(menu api.MenuSnapshot, area geometry.Region) {
	p := area.RandomPoint(it.rng)
	// Walk away from the menu rectangle rather than into it.
	for i := 0; i < 8; i++ {
		inMenu := p.X >= menu.X && p.X < menu.X+menu.Width &&
			p.Y >= menu.Y && p.Y < menu.Y+menu.Height
		if !inMenu {
			break
		}
		p = area.RandomPoint(it.rng)
	}
	it.synth.MoveTo(p.X, p.Y, it.randRange(150*time.Millisecond, 300*time.Millisecond), 0.6)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func (it *Interactor) randRange(min, max time.Duration) time.Duration {
	return min + time.Duration(it.rng.Int63n(int64(max-min)))
}
