package geo

import (
	"testing"

	"github.com/OCAP2/dogfight/pkg/core"
)

func TestPath_CarriesTickAsM(t *testing.T) {
	o, _ := NewOrigin(0, 0)

	ls, err := o.Path([]core.TrajectoryPoint{
		{Position: core.Position3D{Y: 100}, Tick: 10},
		{Position: core.Position3D{Y: 120, Z: 500}, Tick: 40},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seq := ls.Coordinates()
	if seq.Length() != 2 {
		t.Fatalf("expected 2 points, got %d", seq.Length())
	}
	end := seq.Get(1)
	if end.M != 40 || end.Z != 120 {
		t.Errorf("unexpected end point %+v", end)
	}
}

func TestPath_TooShort(t *testing.T) {
	o, _ := NewOrigin(0, 0)

	if _, err := o.Path([]core.TrajectoryPoint{{Tick: 1}}); err == nil {
		t.Error("expected error for single point path")
	}
}
