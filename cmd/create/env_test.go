package create

import (
	"context"
	"errors"
	"testing"

	"github.com/CodeMonkeyCybersecurity/hermes/pkg/platform"
	"github.com/CodeMonkeyCybersecurity/hermes/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type steps struct {
	seen []string
}

type fakeResolver struct {
	*steps
	before bool
	err    error
}

func (f fakeResolver) BeforeElevation() bool { return f.before }

func (f fakeResolver) Ensure(_ context.Context, deps []platform.Dependency) ([]platform.Status, error) {
	f.seen = append(f.seen, "ensure")
	return nil, f.err
}

type fakeElevator struct {
	*steps
	handedOff bool
	args      []string
}

func (f *fakeElevator) Elevate(_ context.Context, args []string) (bool, error) {
	f.seen = append(f.seen, "elevate")
	f.args = args
	return f.handedOff, nil
}

func TestPrepareOrdering(t *testing.T) {
	tests := []struct {
		name          string
		before        bool
		elevatedChild bool
		dryRun        bool
		handedOff     bool
		wantSteps     []string
		wantHandedOff bool
	}{
		{
			name:          "homebrew parent resolves then elevates",
			before:        true,
			handedOff:     true,
			wantSteps:     []string{"ensure", "elevate"},
			wantHandedOff: true,
		},
		{
			name:          "homebrew elevated child does not resolve again",
			before:        true,
			elevatedChild: true,
			wantSteps:     []string{"elevate"},
		},
		{
			name:          "apt parent leaves resolution to the child",
			handedOff:     true,
			wantSteps:     []string{"elevate"},
			wantHandedOff: true,
		},
		{
			name:          "apt resolves once elevated",
			elevatedChild: true,
			wantSteps:     []string{"elevate", "ensure"},
		},
		{
			name:      "dry run never elevates",
			before:    true,
			dryRun:    true,
			wantSteps: []string{"ensure"},
		},
		{
			name:      "dry run on apt still checks dependencies",
			dryRun:    true,
			wantSteps: []string{"ensure"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &steps{}
			e := &fakeElevator{steps: s, handedOff: tt.handedOff}
			handedOff, err := prepare(testutil.Context(t), fakeResolver{steps: s, before: tt.before}, e, prepareOptions{
				Args:          []string{"create", "env", "--client", "acme"},
				ElevatedChild: tt.elevatedChild,
				DryRun:        tt.dryRun,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantHandedOff, handedOff)
			assert.Equal(t, tt.wantSteps, s.seen)
			if !tt.dryRun {
				assert.Equal(t, []string{"create", "env", "--client", "acme"}, e.args)
			}
		})
	}
}

func TestPrepareStopsWhenResolutionFails(t *testing.T) {
	s := &steps{}
	missing := errors.New("mkcert not installable")

	_, err := prepare(testutil.Context(t), fakeResolver{steps: s, before: true, err: missing}, &fakeElevator{steps: s}, prepareOptions{})
	require.ErrorIs(t, err, missing)
	assert.Equal(t, []string{"ensure"}, s.seen)
}
