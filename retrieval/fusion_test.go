package retrieval

import (
	"math"
	"testing"
)

func TestFuser_WeightedMergeWithTieBreak(t *testing.T) {
	t.Parallel()

	fuser, err := NewFuser(FusionConfig{SemanticWeight: 0.5, LexicalWeight: 0.5})
	if err != nil {
		t.Fatalf("NewFuser: %v", err)
	}

	semantic := []Hit{{ChunkID: "A", Score: 0.9}, {ChunkID: "B", Score: 0.5}}
	lexical := []Hit{{ChunkID: "B", Score: 0.8}, {ChunkID: "C", Score: 0.4}}

	fused := fuser.Fuse(semantic, lexical)

	// 归一化: semantic {A:1.0, B:0.0}, lexical {B:1.0, C:0.0}
	// 融合:   {A:0.5, B:0.5, C:0.0}，A/B 同分按 ID 升序
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused hits, got %d", len(fused))
	}
	if fused[0].ChunkID != "A" || fused[1].ChunkID != "B" || fused[2].ChunkID != "C" {
		t.Fatalf("expected order [A B C], got [%s %s %s]",
			fused[0].ChunkID, fused[1].ChunkID, fused[2].ChunkID)
	}
	if math.Abs(fused[0].FusedScore-0.5) > 1e-12 {
		t.Fatalf("expected A fused 0.5, got %f", fused[0].FusedScore)
	}
	if math.Abs(fused[1].FusedScore-0.5) > 1e-12 {
		t.Fatalf("expected B fused 0.5, got %f", fused[1].FusedScore)
	}
	if fused[2].FusedScore != 0.0 {
		t.Fatalf("expected C fused 0.0, got %f", fused[2].FusedScore)
	}
}

func TestFuser_SingleElementListNormalizesToOne(t *testing.T) {
	t.Parallel()

	fuser, err := NewFuser(FusionConfig{SemanticWeight: 1.0, LexicalWeight: 0.0})
	if err != nil {
		t.Fatalf("NewFuser: %v", err)
	}

	fused := fuser.Fuse([]Hit{{ChunkID: "only", Score: 0.3}}, nil)
	if len(fused) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(fused))
	}
	if fused[0].FusedScore != 1.0 {
		t.Fatalf("single-element list should normalize to 1.0, got %f", fused[0].FusedScore)
	}
}

func TestFuser_AllEqualScoresNormalizeToOne(t *testing.T) {
	t.Parallel()

	fuser, err := NewFuser(FusionConfig{SemanticWeight: 1.0, LexicalWeight: 0.0})
	if err != nil {
		t.Fatalf("NewFuser: %v", err)
	}

	fused := fuser.Fuse([]Hit{
		{ChunkID: "b", Score: 0.7},
		{ChunkID: "a", Score: 0.7},
	}, nil)

	if fused[0].FusedScore != 1.0 || fused[1].FusedScore != 1.0 {
		t.Fatalf("all-equal list should normalize to 1.0, got %f %f",
			fused[0].FusedScore, fused[1].FusedScore)
	}
	if fused[0].ChunkID != "a" || fused[1].ChunkID != "b" {
		t.Fatalf("tie should break by id ascending, got [%s %s]",
			fused[0].ChunkID, fused[1].ChunkID)
	}
}

func TestFuser_MissingAppearanceScoresZero(t *testing.T) {
	t.Parallel()

	fuser, err := NewFuser(FusionConfig{SemanticWeight: 0.6, LexicalWeight: 0.4})
	if err != nil {
		t.Fatalf("NewFuser: %v", err)
	}

	semantic := []Hit{{ChunkID: "x", Score: 1.0}, {ChunkID: "y", Score: 0.2}}
	lexical := []Hit{{ChunkID: "z", Score: 3.0}, {ChunkID: "x", Score: 1.0}}

	fused := fuser.Fuse(semantic, lexical)

	byID := make(map[string]FusedHit, len(fused))
	for _, h := range fused {
		byID[h.ChunkID] = h
	}

	// y 在词法列表缺席 → lexical 贡献 0
	wantY := 0.6 * 0.0 // norm_sem(y)=0
	if math.Abs(byID["y"].FusedScore-wantY) > 1e-12 {
		t.Fatalf("expected y fused %f, got %f", wantY, byID["y"].FusedScore)
	}
	// z 在语义列表缺席 → semantic 贡献 0
	wantZ := 0.4 * 1.0
	if math.Abs(byID["z"].FusedScore-wantZ) > 1e-12 {
		t.Fatalf("expected z fused %f, got %f", wantZ, byID["z"].FusedScore)
	}
}

func TestFusionConfig_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     FusionConfig
		wantErr bool
	}{
		{"default", DefaultFusionConfig(), false},
		{"semantic only", FusionConfig{SemanticWeight: 1, LexicalWeight: 0}, false},
		{"lexical only", FusionConfig{SemanticWeight: 0, LexicalWeight: 1}, false},
		{"negative", FusionConfig{SemanticWeight: -0.5, LexicalWeight: 1.5}, true},
		{"sum below one", FusionConfig{SemanticWeight: 0.3, LexicalWeight: 0.3}, true},
		{"sum above one", FusionConfig{SemanticWeight: 0.8, LexicalWeight: 0.8}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestFuser_EmptyInputs(t *testing.T) {
	t.Parallel()

	fuser, err := NewFuser(DefaultFusionConfig())
	if err != nil {
		t.Fatalf("NewFuser: %v", err)
	}

	if fused := fuser.Fuse(nil, nil); len(fused) != 0 {
		t.Fatalf("expected empty output for empty inputs, got %d", len(fused))
	}
}
