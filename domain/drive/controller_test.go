package drive

import (
	"sync"
	"testing"

	"github.com/forcemove/controller/pkg/spatial"
)

func TestTickEquilibrium(t *testing.T) {
	ctrl := NewController(Gains{YawVelocityP: 100.0, XVelocityP: 10000.0, YVelocityP: 10000.0}, 0.25)
	ctrl.OnCommand(1.5, -0.5, 0.8, 0.0)

	// Measured velocity equals the target: no correction needed.
	force, torque := ctrl.Tick(0.1, spatial.Vec2{X: 1.5, Y: -0.5}, 0.8)
	if force.X != 0 || force.Y != 0 {
		t.Errorf("expected zero force at equilibrium, got (%f,%f)", force.X, force.Y)
	}
	if torque != 0 {
		t.Errorf("expected zero torque at equilibrium, got %f", torque)
	}
}

func TestTickProportional(t *testing.T) {
	ctrl := NewController(Gains{YawVelocityP: 100.0, XVelocityP: 10000.0, YVelocityP: 5000.0}, 0.25)
	ctrl.OnCommand(1.0, 0.5, 0.2, 0.0)

	force, torque := ctrl.Tick(0.0, spatial.Vec2{}, 0.0)
	if force.X != 10000.0 {
		t.Errorf("expected force.x 10000, got %f", force.X)
	}
	if force.Y != 2500.0 {
		t.Errorf("expected force.y 2500, got %f", force.Y)
	}
	if torque != 20.0 {
		t.Errorf("expected torque 20, got %f", torque)
	}
}

func TestZeroGainsApplyNothing(t *testing.T) {
	ctrl := NewController(Gains{}, 0.25)
	ctrl.OnCommand(2.0, 2.0, 2.0, 0.0)

	force, torque := ctrl.Tick(0.0, spatial.Vec2{X: -1.0, Y: -1.0}, -1.0)
	if force.X != 0 || force.Y != 0 || torque != 0 {
		t.Errorf("expected no output with zero gains, got force=(%f,%f) torque=%f", force.X, force.Y, torque)
	}
}

func TestStaleCommandFailSafe(t *testing.T) {
	ctrl := NewController(Gains{YawVelocityP: 1.0, XVelocityP: 1.0, YVelocityP: 1.0}, 0.25)
	ctrl.OnCommand(1.0, 2.0, 3.0, 0.0)

	vx, vy, wz := ctrl.TargetVelocity(0.3)
	if vx != 0 || vy != 0 || wz != 0 {
		t.Errorf("expected zero target after timeout, got (%f,%f,%f)", vx, vy, wz)
	}

	// Repeated stale reads stay at zero; the stored command is untouched,
	// only the resolution decays.
	for i := 0; i < 5; i++ {
		vx, vy, wz = ctrl.TargetVelocity(0.3 + float64(i))
		if vx != 0 || vy != 0 || wz != 0 {
			t.Fatalf("fail-safe not idempotent at read %d: (%f,%f,%f)", i, vx, vy, wz)
		}
	}
}

func TestTimeoutBoundaryIsStrict(t *testing.T) {
	ctrl := NewController(Gains{YawVelocityP: 1.0, XVelocityP: 1.0, YVelocityP: 1.0}, 0.25)
	ctrl.OnCommand(1.0, 2.0, 3.0, 1.0)

	// Exactly at the timeout: still fresh, the comparison is strict.
	vx, vy, wz := ctrl.TargetVelocity(1.25)
	if vx != 1.0 || vy != 2.0 || wz != 3.0 {
		t.Errorf("expected command fresh at exact timeout boundary, got (%f,%f,%f)", vx, vy, wz)
	}

	// Just past: stale.
	vx, vy, wz = ctrl.TargetVelocity(1.25 + 1e-9)
	if vx != 0 || vy != 0 || wz != 0 {
		t.Errorf("expected fail-safe just past timeout, got (%f,%f,%f)", vx, vy, wz)
	}
}

func TestCommandImmediatelyEffective(t *testing.T) {
	ctrl := NewController(Gains{YawVelocityP: 1.0, XVelocityP: 1.0, YVelocityP: 1.0}, 0.25)

	ctrl.OnCommand(0.7, 0.0, 0.0, 5.0)
	vx, _, _ := ctrl.TargetVelocity(5.0)
	if vx != 0.7 {
		t.Errorf("expected fresh command to be effective at zero elapsed time, got vx=%f", vx)
	}
}

func TestConcurrentCommandsNoTornRead(t *testing.T) {
	ctrl := NewController(Gains{YawVelocityP: 1.0, XVelocityP: 1.0, YVelocityP: 1.0}, 1e9)

	// Writers always publish tuples (v, 2v, 3v); a torn read would break
	// the relation.
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		v := 1.0
		for {
			select {
			case <-stop:
				return
			default:
				ctrl.OnCommand(v, 2*v, 3*v, 0.0)
				v++
			}
		}
	}()

	for i := 0; i < 10000; i++ {
		vx, vy, wz := ctrl.TargetVelocity(0.0)
		if vx == 0 && vy == 0 && wz == 0 {
			continue // nothing written yet
		}
		if vy != 2*vx || wz != 3*vx {
			t.Fatalf("torn read: (%f,%f,%f)", vx, vy, wz)
		}
	}

	close(stop)
	wg.Wait()
}
