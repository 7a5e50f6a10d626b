// internal/services/constraint_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/communityos/tickets-api/internal/apperrors"
	"github.com/communityos/tickets-api/internal/models"
)

func newAddonSet(ids ...uuid.UUID) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func dependency(from, to uuid.UUID) ConstraintEdge {
	return ConstraintEdge{AddonID: from, RelatedAddonID: to, Type: models.AddonConstraintTypeDependency}
}

func exclusion(from, to uuid.UUID) ConstraintEdge {
	return ConstraintEdge{AddonID: from, RelatedAddonID: to, Type: models.AddonConstraintTypeMutualExclusion}
}

func TestValidateNoCyclesAcceptsChain(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	err := ValidateNoCycles(newAddonSet(a, b, c), []ConstraintEdge{
		dependency(a, b),
		dependency(b, c),
	})

	assert.NoError(t, err)
}

func TestValidateNoCyclesRejectsTriangle(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	err := ValidateNoCycles(newAddonSet(a, b, c), []ConstraintEdge{
		dependency(a, b),
		dependency(b, c),
		dependency(c, a),
	})

	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDependency))
	assert.Contains(t, err.Error(), "Cyclic dependency detected for addon")
}

func TestValidateNoCyclesAcceptsDiamond(t *testing.T) {
	// A->B, A->C, B->D, C->D shares a sink but has no cycle.
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	err := ValidateNoCycles(newAddonSet(a, b, c, d), []ConstraintEdge{
		dependency(a, b),
		dependency(a, c),
		dependency(b, d),
		dependency(c, d),
	})

	assert.NoError(t, err)
}

func TestValidateNoCyclesRejectsSelfEdge(t *testing.T) {
	a := uuid.New()

	err := ValidateNoCycles(newAddonSet(a), []ConstraintEdge{dependency(a, a)})

	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDependency))
}

func TestValidateNoCyclesIgnoresExclusionEdges(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	// Exclusion edges in both directions never form a dependency cycle.
	err := ValidateNoCycles(newAddonSet(a, b), []ConstraintEdge{
		exclusion(a, b),
		exclusion(b, a),
		dependency(a, b),
	})

	assert.NoError(t, err)
}

func TestValidateNoCyclesScopedToAddonSet(t *testing.T) {
	a, b, outside := uuid.New(), uuid.New(), uuid.New()

	// The cycle runs through an addon outside the set, so within this
	// ticket's scope the graph is acyclic.
	err := ValidateNoCycles(newAddonSet(a, b), []ConstraintEdge{
		dependency(a, b),
		dependency(b, outside),
		dependency(outside, a),
	})

	assert.NoError(t, err)
}

func TestValidateNoCyclesEmptyGraph(t *testing.T) {
	assert.NoError(t, ValidateNoCycles(newAddonSet(), nil))
}

func TestMergeEdgesReplacesAndDeletes(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	replaced := models.AddonConstraint{
		AddonID:        a,
		RelatedAddonID: b,
		ConstraintType: models.AddonConstraintTypeDependency,
	}
	replaced.ID = uuid.New()

	deleted := models.AddonConstraint{
		AddonID:        b,
		RelatedAddonID: c,
		ConstraintType: models.AddonConstraintTypeDependency,
	}
	deleted.ID = uuid.New()

	kept := models.AddonConstraint{
		AddonID:        c,
		RelatedAddonID: a,
		ConstraintType: models.AddonConstraintTypeMutualExclusion,
	}
	kept.ID = uuid.New()

	proposed := []ConstraintEdge{dependency(a, c)}

	merged := MergeEdges(
		[]models.AddonConstraint{replaced, deleted, kept},
		proposed,
		[]uuid.UUID{replaced.ID},
		[]uuid.UUID{deleted.ID},
	)

	assert.Len(t, merged, 2)
	assert.Equal(t, kept.AddonID, merged[0].AddonID)
	assert.Equal(t, models.AddonConstraintTypeMutualExclusion, merged[0].Type)
	assert.Equal(t, proposed[0], merged[1])
}

func TestMergeEdgesUpdateEnablesCycleDetection(t *testing.T) {
	// Existing A->B, B->C. Updating B->C into C->A keeps the graph acyclic,
	// but proposing C->A as a new edge closes the triangle.
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	first := models.AddonConstraint{AddonID: a, RelatedAddonID: b, ConstraintType: models.AddonConstraintTypeDependency}
	first.ID = uuid.New()
	second := models.AddonConstraint{AddonID: b, RelatedAddonID: c, ConstraintType: models.AddonConstraintTypeDependency}
	second.ID = uuid.New()
	existing := []models.AddonConstraint{first, second}

	set := newAddonSet(a, b, c)

	replacedMerge := MergeEdges(existing, []ConstraintEdge{dependency(c, a)}, []uuid.UUID{second.ID}, nil)
	assert.NoError(t, ValidateNoCycles(set, replacedMerge))

	addedMerge := MergeEdges(existing, []ConstraintEdge{dependency(c, a)}, nil, nil)
	assert.Error(t, ValidateNoCycles(set, addedMerge))
}
