package sample

import (
	"fmt"
	"math/rand"
	"testing"

	"serendip/internal/domain"
)

func rng(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// makePool builds a pool with `counts[i]` articles for source i.
func makePool(counts ...int) []domain.Article {
	var pool []domain.Article
	for si, n := range counts {
		sourceID := fmt.Sprintf("source-%d", si)
		for ai := 0; ai < n; ai++ {
			url := fmt.Sprintf("https://example.com/%s/%d", sourceID, ai)
			pool = append(pool, domain.Article{
				ID:       url,
				URL:      url,
				SourceID: sourceID,
			})
		}
	}
	return pool
}

func bySource(articles []domain.Article) map[string]int {
	out := make(map[string]int)
	for _, a := range articles {
		out[a.SourceID]++
	}
	return out
}

func assertNoDuplicates(t *testing.T, articles []domain.Article) {
	t.Helper()
	seen := make(map[string]struct{})
	for _, a := range articles {
		if _, ok := seen[a.ID]; ok {
			t.Fatalf("duplicate article %s in result", a.ID)
		}
		seen[a.ID] = struct{}{}
	}
}

func TestSampleSizeLaw(t *testing.T) {
	pools := [][]domain.Article{
		makePool(),
		makePool(1),
		makePool(5, 5),
		makePool(1, 10, 3),
	}
	for _, pool := range pools {
		for _, target := range []int{0, 1, 4, 10, 100} {
			got := Sample(pool, target, rng(1))
			want := target
			if len(pool) < want {
				want = len(pool)
			}
			if target < 0 {
				want = 0
			}
			if len(got) != want {
				t.Errorf("|sample(pool=%d, target=%d)| = %d, want %d", len(pool), target, len(got), want)
			}
		}
	}
}

func TestSampleEmptyAndZero(t *testing.T) {
	if got := Sample(nil, 10, rng(1)); len(got) != 0 {
		t.Errorf("empty pool must yield empty result, got %d", len(got))
	}
	if got := Sample(makePool(3), 0, rng(1)); len(got) != 0 {
		t.Errorf("target 0 must yield empty result, got %d", len(got))
	}
	if got := Sample(makePool(3), -5, rng(1)); len(got) != 0 {
		t.Errorf("negative target must yield empty result, got %d", len(got))
	}
}

func TestSampleSmallPoolReturnsAll(t *testing.T) {
	pool := makePool(2, 3)
	got := Sample(pool, 10, rng(7))
	if len(got) != 5 {
		t.Fatalf("expected whole pool, got %d", len(got))
	}
	assertNoDuplicates(t, got)
}

func TestSampleBalanceLaw(t *testing.T) {
	// 10 sources x 3 articles, target 12: perSource=1, remainder=2.
	pool := makePool(3, 3, 3, 3, 3, 3, 3, 3, 3, 3)
	got := Sample(pool, 12, rng(42))

	if len(got) != 12 {
		t.Fatalf("expected 12 articles, got %d", len(got))
	}
	assertNoDuplicates(t, got)

	counts := bySource(got)
	twos, ones := 0, 0
	for src, n := range counts {
		switch n {
		case 1:
			ones++
		case 2:
			twos++
		default:
			t.Errorf("source %s contributed %d, want 1 or 2", src, n)
		}
	}
	if twos != 2 || ones != 8 {
		t.Errorf("expected 2 sources x2 and 8 sources x1, got %d x2 and %d x1", twos, ones)
	}
}

func TestSampleShortfallFilledFromLeftovers(t *testing.T) {
	// Source A has 1 article, source B has 10, target 6: perSource=3,
	// A falls short by 2, leftovers from B fill the gap.
	pool := makePool(1, 10)
	got := Sample(pool, 6, rng(99))

	if len(got) != 6 {
		t.Fatalf("expected 6 articles, got %d", len(got))
	}
	assertNoDuplicates(t, got)

	counts := bySource(got)
	if counts["source-0"] != 1 {
		t.Errorf("expected A's single article exactly once, got %d", counts["source-0"])
	}
	if counts["source-1"] != 5 {
		t.Errorf("expected 5 from B, got %d", counts["source-1"])
	}
}

func TestSampleDeterministicUnderFixedSeed(t *testing.T) {
	pool := makePool(4, 7, 2, 9)

	a := Sample(pool, 10, rng(1234))
	b := Sample(pool, 10, rng(1234))

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("outputs diverge at %d under the same seed", i)
		}
	}
}

func TestSampleDoesNotMutatePool(t *testing.T) {
	pool := makePool(5, 5)
	ids := make([]string, len(pool))
	for i, a := range pool {
		ids[i] = a.ID
	}

	Sample(pool, 4, rng(3))

	for i, a := range pool {
		if a.ID != ids[i] {
			t.Fatal("sample must not reorder the caller's pool")
		}
	}
}
