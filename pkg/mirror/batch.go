package mirror

import (
	"context"
	"fmt"
	"sync"

	"github.com/diwise/record-mirror/pkg/mirror/entities"
	mirrorerrors "github.com/diwise/record-mirror/pkg/mirror/errors"
)

// SaveAll saves a batch of entities with dependency aware ordering. The
// order of the argument slice is a hint only: entities are partitioned
// into tiers so that an entity is saved strictly after the unsaved
// entities it references, and entities within a tier are saved
// concurrently.
//
// If any save fails, later tiers are not attempted and the first error is
// returned together with a result naming the entities that were saved and
// those that were never tried. Earlier successes are not rolled back.
func (c *Coordinator) SaveAll(ctx context.Context, batch []*entities.Entity) (*BatchSaveResult, error) {
	members := make([]*entities.Entity, 0, len(batch))
	index := map[*entities.Entity]int{}

	for _, e := range batch {
		if e.Deleted() {
			return nil, mirrorerrors.NewUsageAfterDeleteError(e.Kind())
		}

		if _, ok := index[e]; !ok {
			index[e] = len(members)
			members = append(members, e)
		}
	}

	tiers, err := partitionIntoTiers(members, index)
	if err != nil {
		return nil, err
	}

	result := &BatchSaveResult{}

	for tier, entityIndices := range tiers {
		errs := make([]error, len(entityIndices))

		var wg sync.WaitGroup
		for i, idx := range entityIndices {
			wg.Add(1)
			go func(i, idx int) {
				defer wg.Done()
				errs[i] = c.Save(ctx, members[idx])
			}(i, idx)
		}
		wg.Wait()

		for i, idx := range entityIndices {
			if errs[i] == nil {
				result.Saved = append(result.Saved, members[idx])
				continue
			}

			if err == nil {
				err = errs[i]
			}
		}

		if err != nil {
			for _, laterTier := range tiers[tier+1:] {
				for _, idx := range laterTier {
					result.NotAttempted = append(result.NotAttempted, members[idx])
				}
			}

			return result, err
		}
	}

	return result, nil
}

// partitionIntoTiers performs a topological layering of the batch,
// restricted to dependencies on entities that are both unresolved and part
// of the batch. A dependency cycle inside the batch can never be jointly
// resolved, so it fails the whole call before any network activity.
func partitionIntoTiers(members []*entities.Entity, index map[*entities.Entity]int) ([][]int, error) {
	dependencies := make([][]int, len(members))

	for i, e := range members {
		for _, target := range e.Dependencies() {
			if j, ok := index[target]; ok {
				dependencies[i] = append(dependencies[i], j)
			}
		}
	}

	assigned := make([]bool, len(members))
	remaining := len(members)

	tiers := make([][]int, 0, 2)

	for remaining > 0 {
		tier := make([]int, 0, remaining)

		for i := range members {
			if assigned[i] {
				continue
			}

			ready := true
			for _, j := range dependencies[i] {
				if !assigned[j] {
					ready = false
					break
				}
			}

			if ready {
				tier = append(tier, i)
			}
		}

		if len(tier) == 0 {
			return nil, mirrorerrors.NewCyclicDependencyError(
				fmt.Sprintf("%d entities in the batch form a reference cycle among unsaved entities", remaining),
			)
		}

		for _, i := range tier {
			assigned[i] = true
		}

		remaining -= len(tier)
		tiers = append(tiers, tier)
	}

	return tiers, nil
}
