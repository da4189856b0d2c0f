// Package pipeline runs the KML import pass: walk the document tree,
// normalize placemarks on a bounded worker pool, and hand the ordered result
// to the store.
package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geomark/internal/feature"
	"github.com/sells-group/geomark/internal/kml"
)

// Result is the flattened output of one import pass.
type Result struct {
	RunID    string
	Features []feature.Feature
	Styles   []feature.Style
	Walked   int // placemark nodes visited
	Dropped  int // nodes without usable geometry
}

// Options tunes a pass.
type Options struct {
	Workers       int    // normalization workers; <=1 means sequential
	MediaLinksKey string // reserved extended-data key for media links
	Limit         int    // cap on imported features; 0 = no limit
}

// Run normalizes the whole document. Tree traversal is sequential (path
// accumulation is stateful per branch); normalization of individual nodes is
// pure and fans out across the pool. Results land in an index-addressed
// slice so the pre-order document sequence survives the parallelism.
func Run(ctx context.Context, doc *kml.Document, opts Options) (*Result, error) {
	runID := uuid.New().String()
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("run_id", runID))

	nodes := kml.Walk(doc)

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	normalized := make([]*feature.Feature, len(nodes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, node := range nodes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			normalized[i] = feature.Normalize(node, opts.MediaLinksKey)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: normalize")
	}

	res := &Result{RunID: runID, Walked: len(nodes)}
	for _, f := range normalized {
		if f == nil {
			res.Dropped++
			continue
		}
		res.Features = append(res.Features, *f)
	}

	if opts.Limit > 0 && len(res.Features) > opts.Limit {
		res.Features = res.Features[:opts.Limit]
	}

	for _, s := range doc.Styles {
		res.Styles = append(res.Styles, feature.NormalizeStyle(s))
	}

	log.Info("import pass complete",
		zap.Int("walked", res.Walked),
		zap.Int("features", len(res.Features)),
		zap.Int("dropped", res.Dropped),
		zap.Int("styles", len(res.Styles)),
	)

	return res, nil
}
