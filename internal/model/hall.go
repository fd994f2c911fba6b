package model

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/iliyamo/reeltime/internal/inventory"
)

// Hall is an auditorium owned by an admin.  Layout describes its grid of
// seat and non-seat cells; Capacity is informational and defaults to the
// number of seat cells.
//
// Fields:
//  ID        – primary key identifier.
//  AdminID   – user ID of the admin who owns the hall.
//  Name      – hall name, unique per admin.
//  Capacity  – nominal number of seats.
//  Layout    – cells of the seat map.
type Hall struct {
	ID        uint64     `db:"id" json:"id"`                 // halls.id
	AdminID   uint64     `db:"admin_id" json:"admin_id"`     // halls.admin_id
	Name      string     `db:"name" json:"name"`             // halls.name
	Capacity  int        `db:"capacity" json:"capacity"`     // halls.capacity
	Layout    HallLayout `db:"layout" json:"layout"`         // halls.layout (JSON)
	CreatedAt time.Time  `db:"created_at" json:"created_at"` // halls.created_at
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"` // halls.updated_at
}

// HallLayout is stored as a JSON list of cells.  On input it also accepts
// the {"seat_map": [...]} envelope, and any cell type other than "seat"
// (aisle, screen, gap, ...) is read as a non-seat cell.
type HallLayout []inventory.SeatCell

func (l HallLayout) Cells() []inventory.SeatCell { return []inventory.SeatCell(l) }

func (l HallLayout) Validate() error { return inventory.ValidateLayout(l) }

type rawCell struct {
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Type string `json:"type"`
	Kind string `json:"kind"`
}

func (l *HallLayout) UnmarshalJSON(b []byte) error {
	var raw []rawCell
	if err := json.Unmarshal(b, &raw); err != nil {
		var env struct {
			SeatMap []rawCell `json:"seat_map"`
		}
		if err2 := json.Unmarshal(b, &env); err2 != nil {
			return err
		}
		raw = env.SeatMap
	}
	out := make(HallLayout, 0, len(raw))
	for _, c := range raw {
		kind := c.Type
		if kind == "" {
			kind = c.Kind
		}
		k := inventory.KindNonSeat
		if strings.EqualFold(strings.TrimSpace(kind), string(inventory.KindSeat)) {
			k = inventory.KindSeat
		}
		out = append(out, inventory.SeatCell{Row: c.Row, Col: c.Col, Kind: k})
	}
	*l = out
	return nil
}

func (l *HallLayout) Scan(src any) error { return scanJSON(src, l) }

func (l HallLayout) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return valueJSON([]inventory.SeatCell(l))
}
