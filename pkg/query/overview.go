package query

import (
	"context"
	"fmt"
	"regexp"

	"golang.org/x/sync/errgroup"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger"
)

const overviewParallel = 4

var plainName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Overview is the number of nodes per catalog label.
type Overview struct {
	SchemaVersion string       `json:"schema_version"`
	Labels        []LabelCount `json:"labels"`
	Total         int64        `json:"total"`
}

// Overview counts the nodes of every label in the current catalog. Each count
// runs as its own validated, cached query. The first failure is returned.
func (o *Orchestrator) Overview(ctx context.Context) (*Overview, error) {
	snap := o.catalog.Describe()
	if snap == nil {
		return nil, common.Errorf(common.ErrCatalogUnavailable, "query.Overview", "no schema loaded")
	}

	var names []string
	for _, l := range snap.LabelNames() {
		if !plainName.MatchString(l) {
			logger.Debug("Skipping label that needs quoting in overview", "label", l)
			continue
		}
		names = append(names, l)
	}

	out := &Overview{SchemaVersion: snap.Version, Labels: make([]LabelCount, len(names))}
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(overviewParallel)
	for i, label := range names {
		eg.Go(func() error {
			req := o.newRequest("count "+label, SourceOverview)
			res := o.answerQuery(ectx, req, fmt.Sprintf("MATCH (n:%s) RETURN count(n) AS nodes", label))
			if !res.Done() {
				return res.Err()
			}
			out.Labels[i] = LabelCount{Label: label, Count: firstInt(res.Rows, "nodes")}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, l := range out.Labels {
		out.Total += l.Count
	}
	return out, nil
}

func firstInt(res *common.ExecutionResult, column string) int64 {
	if res == nil || len(res.Rows) == 0 {
		return 0
	}
	v := res.Rows[0][column]
	switch v.Kind {
	case common.KindInteger:
		return v.Int
	case common.KindFloat:
		return int64(v.Float)
	}
	return 0
}
