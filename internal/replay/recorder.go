package replay

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/GwennKoi/XorShiftLPC/internal/xorshift"
)

// Recorder runs operations against its own seed chain and keeps every call.
// It is not safe for concurrent use.
type Recorder struct {
	seed  xorshift.Seed
	trace Trace
}

func NewRecorder(seed xorshift.Seed) *Recorder {
	seed = seed.Sanitize()
	return &Recorder{
		seed: seed,
		trace: Trace{
			Header: Header{
				Version:     TraceVersion,
				TraceID:     uuid.NewString(),
				InitialSeed: seed,
				CreatedAt:   time.Now().UTC(),
			},
		},
	}
}

// Seed is the seed the next call will consume.
func (r *Recorder) Seed() xorshift.Seed { return r.seed }

func (r *Recorder) Range(size int) (int, error) {
	res, err := xorshift.RandomInRange(size, r.seed)
	if err != nil {
		return 0, err
	}
	r.append(Step{Op: OpRange, Size: size, Int: res.Value}, res.Seed)
	return res.Value, nil
}

func (r *Recorder) Shuffle(items []string) ([]string, error) {
	res, err := xorshift.Shuffle(items, r.seed)
	if err != nil {
		return nil, err
	}
	r.append(Step{Op: OpShuffle, Items: slices.Clone(items), Values: res.Value}, res.Seed)
	return slices.Clone(res.Value), nil
}

func (r *Recorder) Pick(items []string) (string, error) {
	res, err := xorshift.ElementOf(items, r.seed)
	if err != nil {
		return "", err
	}
	r.append(Step{Op: OpPick, Items: slices.Clone(items), Value: res.Value}, res.Seed)
	return res.Value, nil
}

func (r *Recorder) append(st Step, next xorshift.Seed) {
	st.SeedIn = r.seed
	st.SeedOut = next
	r.trace.Steps = append(r.trace.Steps, st)
	r.seed = next
}

// Trace returns a copy of everything recorded so far.
func (r *Recorder) Trace() Trace {
	out := r.trace
	out.Steps = slices.Clone(r.trace.Steps)
	return out
}

type MismatchError struct {
	Step   int
	Reason string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("trace step %d: %s", e.Step, e.Reason)
}

// Verify replays every step from its recorded input seed and checks that the
// chain is continuous and that each value and output seed reproduce exactly.
func Verify(tr Trace) error {
	if err := checkVersion("verify", tr.Header); err != nil {
		return err
	}

	prev := tr.Header.InitialSeed.Sanitize()
	for i, st := range tr.Steps {
		if st.SeedIn != prev {
			return &MismatchError{Step: i, Reason: fmt.Sprintf("seed_in %d does not continue chain at %d", st.SeedIn, prev)}
		}

		var next xorshift.Seed
		switch st.Op {
		case OpRange:
			res, err := xorshift.RandomInRange(st.Size, st.SeedIn)
			if err != nil {
				return fmt.Errorf("trace step %d: %w", i, err)
			}
			if res.Value != st.Int {
				return &MismatchError{Step: i, Reason: fmt.Sprintf("range got %d want %d", res.Value, st.Int)}
			}
			next = res.Seed

		case OpShuffle:
			res, err := xorshift.Shuffle(st.Items, st.SeedIn)
			if err != nil {
				return fmt.Errorf("trace step %d: %w", i, err)
			}
			if !slices.Equal(res.Value, st.Values) {
				return &MismatchError{Step: i, Reason: fmt.Sprintf("shuffle got %v want %v", res.Value, st.Values)}
			}
			next = res.Seed

		case OpPick:
			res, err := xorshift.ElementOf(st.Items, st.SeedIn)
			if err != nil {
				return fmt.Errorf("trace step %d: %w", i, err)
			}
			if res.Value != st.Value {
				return &MismatchError{Step: i, Reason: fmt.Sprintf("pick got %q want %q", res.Value, st.Value)}
			}
			next = res.Seed

		default:
			return &MismatchError{Step: i, Reason: fmt.Sprintf("unknown op %q", st.Op)}
		}

		if next != st.SeedOut {
			return &MismatchError{Step: i, Reason: fmt.Sprintf("seed_out got %d want %d", next, st.SeedOut)}
		}
		prev = next
	}
	return nil
}
