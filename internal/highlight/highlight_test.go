package highlight

import (
	"reflect"
	"testing"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func hasSpan(spans []Span, want Span) bool {
	for _, s := range spans {
		if s == want {
			return true
		}
	}
	return false
}

func TestHighlightsTags(t *testing.T) {
	e := newEngine(t)
	if err := e.Update("sc1", "<p>Hi <em>you</em></p>\n<p>é</p>\n"); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got := e.Highlights("sc1", 0, 1)
	for _, want := range []Span{
		{StartCol: 0, EndCol: 3, Kind: KindTag},
		{StartCol: 6, EndCol: 10, Kind: KindTag},
		{StartCol: 13, EndCol: 18, Kind: KindTag},
	} {
		if !hasSpan(got[0], want) {
			t.Fatalf("line 0 spans %+v missing %+v", got[0], want)
		}
	}
	// Columns count runes, not bytes.
	if want := (Span{StartCol: 4, EndCol: 8, Kind: KindTag}); !hasSpan(got[1], want) {
		t.Fatalf("line 1 spans %+v missing %+v", got[1], want)
	}
}

func TestHighlightsAttributes(t *testing.T) {
	e := newEngine(t)
	if err := e.Update("sc1", `<p><comment id="c1">x</comment></p>`); err != nil {
		t.Fatalf("Update: %v", err)
	}
	spans := e.Highlights("sc1", 0, 0)[0]
	if !hasSpan(spans, Span{StartCol: 12, EndCol: 14, Kind: KindAttribute}) {
		t.Fatalf("attribute missing from %+v", spans)
	}
	if !hasSpan(spans, Span{StartCol: 15, EndCol: 19, Kind: KindString}) {
		t.Fatalf("value missing from %+v", spans)
	}
}

func TestHighlightsRange(t *testing.T) {
	e := newEngine(t)
	if err := e.Update("k", "<p>a</p>\n<p>b</p>\n<p>c</p>\n"); err != nil {
		t.Fatal(err)
	}
	got := e.Highlights("k", 1, 1)
	if len(got[0]) != 0 || len(got[2]) != 0 || len(got[1]) == 0 {
		t.Fatalf("Highlights(1, 1) = %+v", got)
	}
	if e.Highlights("k", 2, 1) != nil {
		t.Fatal("inverted range returned spans")
	}
	if e.Highlights("missing", 0, 1) != nil {
		t.Fatal("unknown key returned spans")
	}
}

func TestElementPath(t *testing.T) {
	e := newEngine(t)
	if err := e.Update("sc1", "<p>Hi <em>yöu</em></p>\n"); err != nil {
		t.Fatal(err)
	}
	if got, want := e.ElementPath("sc1", 0, 11), []string{"em", "p"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ElementPath = %v, want %v", got, want)
	}
	if got, want := e.ElementPath("sc1", 0, 4), []string{"p"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ElementPath = %v, want %v", got, want)
	}
}

func TestForget(t *testing.T) {
	e := newEngine(t)
	if err := e.Update("sc1", "<p>x</p>"); err != nil {
		t.Fatal(err)
	}
	e.Forget("sc1")
	if e.Highlights("sc1", 0, 0) != nil {
		t.Fatal("forgotten key still highlighted")
	}
}
