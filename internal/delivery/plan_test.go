package delivery

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/messenger-booking-relay/internal/fragment"
)

const tick = DefaultInterval

func card(title string) fragment.Fragment {
	return fragment.NewCard(fragment.Card{Title: title})
}

func TestPlanSinglesUseIndexSlots(t *testing.T) {
	steps := Plan([]fragment.Fragment{
		fragment.NewText("a"),
		fragment.NewQuickReplies("b", "x"),
		fragment.NewImage("https://img"),
	}, tick)

	require.Len(t, steps, 3)
	for i, s := range steps {
		assert.False(t, s.Unit.IsCarousel())
		assert.Equal(t, time.Duration(i)*tick, s.Offset)
	}
}

func TestPlanCardRunClosedByText(t *testing.T) {
	steps := Plan([]fragment.Fragment{
		fragment.NewText("intro"),
		card("c1"),
		card("c2"),
		fragment.NewText("outro"),
	}, tick)

	require.Len(t, steps, 3)
	assert.Equal(t, time.Duration(0), steps[0].Offset)

	assert.True(t, steps[1].Unit.IsCarousel())
	assert.Equal(t, []fragment.Card{{Title: "c1"}, {Title: "c2"}}, steps[1].Unit.Cards)
	assert.Equal(t, 2*tick, steps[1].Offset, "carousel takes the last card's slot")

	assert.Equal(t, "outro", steps[2].Unit.Fragment.FirstLine())
	assert.Equal(t, 3*tick, steps[2].Offset)
}

func TestPlanTrailingCardRun(t *testing.T) {
	steps := Plan([]fragment.Fragment{
		fragment.NewText("intro"),
		card("c1"),
		card("c2"),
	}, tick)

	require.Len(t, steps, 2)
	assert.True(t, steps[1].Unit.IsCarousel())
	assert.Len(t, steps[1].Unit.Cards, 2, "the last card must not be dropped")
	assert.Equal(t, tick, steps[1].Offset)
}

func TestPlanSingleCard(t *testing.T) {
	steps := Plan([]fragment.Fragment{card("only")}, tick)
	require.Len(t, steps, 1)
	assert.True(t, steps[0].Unit.IsCarousel())
	assert.Equal(t, 1, steps[0].Unit.Size())
	assert.Equal(t, time.Duration(0), steps[0].Offset)
}

func TestPlanRunOfNCardsIsOneUnit(t *testing.T) {
	for n := 1; n <= 6; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			frags := []fragment.Fragment{fragment.NewText("head")}
			for i := 0; i < n; i++ {
				frags = append(frags, card(fmt.Sprint(i)))
			}
			frags = append(frags, fragment.NewText("tail"))

			steps := Plan(frags, tick)
			require.Len(t, steps, 3)
			assert.Equal(t, n, steps[1].Unit.Size())
		})
	}
}

func TestPlanEmpty(t *testing.T) {
	assert.Empty(t, Plan(nil, tick))
}

// flatten expands units back into the fragment titles/lines they carry.
func flatten(steps []Step) []string {
	out := []string{}
	for _, s := range steps {
		if s.Unit.IsCarousel() {
			for _, c := range s.Unit.Cards {
				out = append(out, "card:"+c.Title)
			}
			continue
		}
		out = append(out, label(*s.Unit.Fragment))
	}
	return out
}

func label(f fragment.Fragment) string {
	if f.IsCard() {
		return "card:" + f.Card.Title
	}
	return string(f.Kind) + ":" + f.FirstLine()
}

func TestPlanEmptyFlattensToEmpty(t *testing.T) {
	assert.Equal(t, []string{}, flatten(Plan([]fragment.Fragment{}, tick)))
}

func TestPlanPreservesOrderWithoutLossOrDuplication(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(12)
		frags := make([]fragment.Fragment, 0, n)
		want := make([]string, 0, n)
		for i := 0; i < n; i++ {
			var f fragment.Fragment
			if rng.Intn(2) == 0 {
				f = card(fmt.Sprintf("c%d", i))
			} else {
				f = fragment.NewText(fmt.Sprintf("t%d", i))
			}
			frags = append(frags, f)
			want = append(want, label(f))
		}

		steps := Plan(frags, tick)
		assert.Equal(t, want, flatten(steps), "iteration %d", iter)

		for i := 1; i < len(steps); i++ {
			assert.GreaterOrEqual(t, steps[i].Offset, steps[i-1].Offset, "offsets must be non-decreasing")
		}
		for i := 1; i < len(steps); i++ {
			assert.False(t, steps[i].Unit.IsCarousel() && steps[i-1].Unit.IsCarousel(), "adjacent carousels should have merged")
		}
	}
}
