package hashing

import (
	"context"
	"math"
	"reflect"
	"testing"

	"pgregory.net/rapid"
)

func TestProvider_Tokens(t *testing.T) {
	p := New(0)
	got := p.Tokens("Hello, WORLD! Don't stop 2024 ﬁnance")
	want := []string{"hello", "world", "don't", "stop", "2024", "finance"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokens() = %q, want %q", got, want)
	}
}

func TestProvider_Defaults(t *testing.T) {
	p := New(0)
	if p.Dimension() != 512 {
		t.Errorf("Dimension() = %d, want 512", p.Dimension())
	}
	if p.MaxBatchSize() != 0 {
		t.Errorf("MaxBatchSize() = %d, want 0", p.MaxBatchSize())
	}
}

func TestProvider_EmptyTextIsZeroVector(t *testing.T) {
	v, err := New(16).Embed(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Embed error: %v", err)
	}
	for i, x := range v {
		if x != 0 {
			t.Fatalf("v[%d] = %v, want 0", i, x)
		}
	}
}

func TestProvider_SimilarTextsScoreHigher(t *testing.T) {
	p := New(1024)
	ctx := context.Background()
	docs, err := p.EmbedBatch(ctx, []string{
		"store opening hours are nine to five",
		"shipping is free for orders above fifty dollars",
	})
	if err != nil {
		t.Fatalf("EmbedBatch error: %v", err)
	}
	q, _ := p.Embed(ctx, "store opening hours")

	if dot(q, docs[0]) <= dot(q, docs[1]) {
		t.Errorf("opening-hours doc scored %v, shipping doc %v", dot(q, docs[0]), dot(q, docs[1]))
	}
}

func TestProvider_UnitLengthAndDeterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		text := rapid.StringMatching(`[a-zA-Z ]{1,60}`).Draw(rt, "text")
		dim := rapid.IntRange(1, 128).Draw(rt, "dim")
		p := New(dim)

		a, _ := p.Embed(context.Background(), text)
		b, _ := p.Embed(context.Background(), text)
		if !reflect.DeepEqual(a, b) {
			rt.Fatalf("Embed(%q) not deterministic", text)
		}
		if len(a) != dim {
			rt.Fatalf("len = %d, want %d", len(a), dim)
		}
		if len(p.Tokens(text)) == 0 {
			return
		}
		// Bucket collisions can cancel to zero; otherwise the vector is unit length.
		n := math.Sqrt(float64(dot(a, a)))
		if n != 0 && math.Abs(n-1) > 1e-4 {
			rt.Fatalf("|Embed(%q)| = %v, want 1", text, n)
		}
	})
}

func TestProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(8).EmbedBatch(ctx, []string{"a"}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
