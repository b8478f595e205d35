package rendersvc

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"

	"github.com/allii5/TextInsight/core/analysis"
)

// DummyRenderer returns stable references derived from the payload without
// rendering anything. Used in DEV/TEST mode.
type DummyRenderer struct{}

var _ analysis.Renderer = (*DummyRenderer)(nil)

func NewDummyRenderer() *DummyRenderer {
	return &DummyRenderer{}
}

func (r *DummyRenderer) Render(_ context.Context, kind string, data interface{}) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(raw)
	return "/static/generated_result/" + kind + "_" + hex.EncodeToString(sum[:8]), nil
}
