package retrieval

import "testing"

func rec(id string) Record { return Record{ChunkID: id, Text: id} }

func TestFuse_EmptyLists(t *testing.T) {
	out := Fuse(60)
	if len(out) != 0 {
		t.Fatalf("Fuse() with no lists = %d records, want 0", len(out))
	}
}

func TestFuse_SingleList(t *testing.T) {
	out := Fuse(60, []Record{rec("a"), rec("b"), rec("c")})
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	if out[0].ChunkID != "a" {
		t.Errorf("out[0].ChunkID = %q, want %q", out[0].ChunkID, "a")
	}
}

func TestFuse_OverlappingListsBoostSharedItems(t *testing.T) {
	list1 := []Record{rec("a"), rec("b"), rec("c")}
	list2 := []Record{rec("b"), rec("a"), rec("d")}
	out := Fuse(60, list1, list2)

	top := map[string]bool{out[0].ChunkID: true, out[1].ChunkID: true}
	if !top["a"] || !top["b"] {
		t.Errorf("top 2 = %v, want both a and b present", []string{out[0].ChunkID, out[1].ChunkID})
	}
}

func TestFuse_UniqueItemsPreserved(t *testing.T) {
	out := Fuse(60, []Record{rec("a")}, []Record{rec("b")})
	ids := map[string]bool{}
	for _, r := range out {
		ids[r.ChunkID] = true
	}
	if !ids["a"] || !ids["b"] || len(ids) != 2 {
		t.Errorf("ids = %v, want exactly {a, b}", ids)
	}
}

func TestFuse_ScoresArePositive(t *testing.T) {
	out := Fuse(60, []Record{rec("a"), rec("b")})
	for _, r := range out {
		if r.RRFScore <= 0 {
			t.Errorf("RRFScore for %q = %f, want > 0", r.ChunkID, r.RRFScore)
		}
	}
}

// TestFuse_ExactScenario reproduces spec §8 scenario 5: RRF over [a,b,c]
// and [b,a,d] with k=60 yields a=1/61+1/62, b=1/62+1/61, c=1/63, d=1/63,
// ordered a, b (equal scores, a seen first), then c before d by the same
// first-appearance tie-break.
func TestFuse_ExactScenario(t *testing.T) {
	list1 := []Record{rec("a"), rec("b"), rec("c")}
	list2 := []Record{rec("b"), rec("a"), rec("d")}
	out := Fuse(60, list1, list2)

	wantOrder := []string{"a", "b", "c", "d"}
	if len(out) != len(wantOrder) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(wantOrder))
	}
	for i, want := range wantOrder {
		if out[i].ChunkID != want {
			t.Errorf("out[%d].ChunkID = %q, want %q", i, out[i].ChunkID, want)
		}
	}

	aScore := 1.0/61 + 1.0/62
	bScore := 1.0/62 + 1.0/61
	const eps = 1e-9
	if diff := out[0].RRFScore - aScore; diff > eps || diff < -eps {
		t.Errorf("a score = %f, want %f", out[0].RRFScore, aScore)
	}
	if diff := out[1].RRFScore - bScore; diff > eps || diff < -eps {
		t.Errorf("b score = %f, want %f", out[1].RRFScore, bScore)
	}
}

func TestFuse_Commutative(t *testing.T) {
	list1 := []Record{rec("a"), rec("b"), rec("c")}
	list2 := []Record{rec("b"), rec("a"), rec("d")}

	out1 := Fuse(60, list1, list2)
	out2 := Fuse(60, list2, list1)

	set1 := map[string]float64{}
	for _, r := range out1 {
		set1[r.ChunkID] = r.RRFScore
	}
	for _, r := range out2 {
		if set1[r.ChunkID] != r.RRFScore {
			t.Errorf("score for %q differs by argument order: %f vs %f", r.ChunkID, set1[r.ChunkID], r.RRFScore)
		}
	}
}
