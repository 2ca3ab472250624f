package merge

import (
	"context"
	"errors"
	"fmt"

	"github.com/agenthands/nexus/internal/core/model"
	"github.com/agenthands/nexus/internal/store"
)

var ErrRedirectCycle = errors.New("merge redirect cycle")

// resolveSurvivor follows the merged-into chain from uuid to its fixed
// point. Merges can chain, so a previously merged-away id must resolve to
// the id that currently survives. A revisited id means the chain is cyclic,
// which is a corrupt-graph condition, not something to loop on.
func resolveSurvivor(ctx context.Context, s store.GraphStore, uuid string) (*model.CanonicalEntity, error) {
	seen := map[string]bool{}

	for {
		if seen[uuid] {
			return nil, fmt.Errorf("%w: revisited %s", ErrRedirectCycle, uuid)
		}
		seen[uuid] = true

		entity, err := s.GetCanonical(ctx, uuid)
		if err != nil {
			return nil, err
		}
		if entity.MergedInto == "" {
			return entity, nil
		}
		uuid = entity.MergedInto
	}
}
