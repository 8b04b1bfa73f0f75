package world

import "github.com/abporter521/CS3500-TankWars/internal/vector"

const (
	// MaxHitPoints is the health of a freshly spawned tank.
	MaxHitPoints = 3

	// TankSize is the side length of a tank sprite; collisions use half of it.
	TankSize   = 60.0
	TankRadius = TankSize / 2

	// WallSize is the thickness of a wall segment.
	WallSize = 50.0

	// PowerUpRadius is the pickup distance between a tank and a power-up.
	PowerUpRadius = 30.0
)

// Tank is a player-controlled entity.
type Tank struct {
	ID           int             `json:"tank"`
	Location     vector.Vector2D `json:"loc"`
	Orientation  vector.Vector2D `json:"bdir"`
	Aim          vector.Vector2D `json:"tdir"`
	Name         string          `json:"name"`
	HitPoints    int             `json:"hp"`
	Score        int             `json:"score"`
	Died         bool            `json:"died"`
	Disconnected bool            `json:"dc"`
	Joined       bool            `json:"join"`
	PowerUps     int             `json:"pups"`

	// server-side counters, never sent
	Cooldown    int `json:"-"`
	RespawnWait int `json:"-"`
}

// NewTank returns a tank at full health facing up.
func NewTank(id int, name string, loc vector.Vector2D) Tank {
	return Tank{
		ID:          id,
		Name:        name,
		Location:    loc,
		Orientation: vector.Up,
		Aim:         vector.Up,
		HitPoints:   MaxHitPoints,
		Joined:      true,
	}
}

// Alive reports whether the tank has health left and is still connected.
func (t Tank) Alive() bool {
	return t.HitPoints > 0 && !t.Disconnected
}

// Wall is an axis-aligned segment between two endpoints.
type Wall struct {
	ID int             `json:"wall"`
	P1 vector.Vector2D `json:"p1"`
	P2 vector.Vector2D `json:"p2"`
}

// Bounds returns the wall rectangle grown by margin on every side.
func (w Wall) Bounds(margin float64) Rect {
	half := WallSize/2 + margin
	return Rect{
		MinX: min(w.P1.X, w.P2.X) - half,
		MaxX: max(w.P1.X, w.P2.X) + half,
		MinY: min(w.P1.Y, w.P2.Y) - half,
		MaxY: max(w.P1.Y, w.P2.Y) + half,
	}
}

// Projectile is a main-gun shell.
type Projectile struct {
	ID        int             `json:"proj"`
	Location  vector.Vector2D `json:"loc"`
	Direction vector.Vector2D `json:"dir"`
	Died      bool            `json:"died"`
	Owner     int             `json:"owner"`
}

// Beam is a one-tick hit-scan ray fired with a power-up.
type Beam struct {
	ID        int             `json:"beam"`
	Origin    vector.Vector2D `json:"org"`
	Direction vector.Vector2D `json:"dir"`
	Owner     int             `json:"owner"`
}

// PowerUp grants one beam shot. Collected is sent as "died" for
// compatibility with existing clients.
type PowerUp struct {
	ID        int             `json:"power"`
	Location  vector.Vector2D `json:"loc"`
	Collected bool            `json:"died"`
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	MinX, MaxX, MinY, MaxY float64
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p vector.Vector2D) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// Kind names an entity type by its wire discriminator key.
type Kind string

const (
	KindTank       Kind = "tank"
	KindWall       Kind = "wall"
	KindProjectile Kind = "proj"
	KindPowerUp    Kind = "power"
	KindBeam       Kind = "beam"
)

// Kinds lists every discriminator key.
var Kinds = []Kind{KindTank, KindWall, KindProjectile, KindPowerUp, KindBeam}

func (Tank) Kind() Kind       { return KindTank }
func (Wall) Kind() Kind       { return KindWall }
func (Projectile) Kind() Kind { return KindProjectile }
func (PowerUp) Kind() Kind    { return KindPowerUp }
func (Beam) Kind() Kind       { return KindBeam }
