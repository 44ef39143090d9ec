package transformation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetCategoryMovesItem(t *testing.T) {
	table := MappingTable{"Story": JiraRequirement, "Bug": JiraBug}

	got, err := SetCategory(table, JiraTypes, "Story", JiraIncident)
	require.NoError(t, err)

	assert.Equal(t, MappingTable{"Story": JiraIncident, "Bug": JiraBug}, got)
	assert.Empty(t, Members(got, JiraRequirement))
	// input untouched
	assert.Equal(t, JiraRequirement, table["Story"])
}

func TestSetCategoryIdempotent(t *testing.T) {
	table := MappingTable{"Bug": JiraBug}

	once, err := SetCategory(table, JiraTypes, "Incident", JiraIncident)
	require.NoError(t, err)
	twice, err := SetCategory(once, JiraTypes, "Incident", JiraIncident)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestSetCategoryUnknown(t *testing.T) {
	_, err := SetCategory(MappingTable{}, JiraTypes, "Story", Category("FEATURE"))
	assert.Error(t, err)

	_, err = SetSelection(MappingTable{}, TapdStatuses, TapdBug, nil)
	assert.Error(t, err)
}

func TestSetSelectionIgnoresClaimedItems(t *testing.T) {
	table := MappingTable{"Story": JiraRequirement, "Bug": JiraBug}

	got, err := SetSelection(table, JiraTypes, JiraIncident, []string{"Bug", "Outage"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Outage"}, Members(got, JiraIncident))
	assert.Equal(t, []string{"Bug"}, Members(got, JiraBug))
	assert.Equal(t, []string{"Story"}, Members(got, JiraRequirement))
}

func TestSetSelectionReplacesMembership(t *testing.T) {
	table := MappingTable{"Story": JiraRequirement, "Epic": JiraRequirement}

	got, err := SetSelection(table, JiraTypes, JiraRequirement, []string{"Epic"})
	require.NoError(t, err)

	assert.Equal(t, MappingTable{"Epic": JiraRequirement}, got)
}

func TestAvailable(t *testing.T) {
	table := MappingTable{"Story": JiraRequirement, "Bug": JiraBug}
	universe := []string{"Story", "Bug", "Task"}

	assert.Equal(t, []string{"Story", "Task"}, Available(table, JiraTypes, JiraRequirement, universe))
	assert.Equal(t, []string{"Bug", "Task"}, Available(table, JiraTypes, JiraBug, universe))
}

func TestEachItemHasOneCategory(t *testing.T) {
	table := MappingTable{}
	var err error
	for _, step := range []struct {
		item string
		cat  Category
	}{
		{"a", JiraBug}, {"b", JiraBug}, {"a", JiraIncident}, {"b", JiraRequirement}, {"a", JiraBug},
	} {
		table, err = SetCategory(table, JiraTypes, step.item, step.cat)
		require.NoError(t, err)
	}

	total := 0
	for _, c := range JiraTypes.Categories {
		total += len(Members(table, c))
	}
	assert.Equal(t, 2, total)
	assert.Equal(t, JiraBug, table["a"])
	assert.Equal(t, JiraRequirement, table["b"])
}

func TestUnsetAndRestrict(t *testing.T) {
	table := MappingTable{"Story": JiraRequirement, "Gone": JiraBug}

	assert.Equal(t, MappingTable{"Gone": JiraBug}, unset(table, JiraTypes, "Story"))
	assert.Equal(t, MappingTable{"Story": JiraRequirement}, Restrict(table, JiraTypes, []string{"Story", "Task"}))
}
