package custsvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwmodels "github.com/joao-augusto-1103/fireflynexus-sub002/internal/api/gateway/models"
)

func TestGroupDuplicates(t *testing.T) {
	records := []gwmodels.StoredRecord{
		{ID: "a", Data: gwmodels.Record{"phone": "11 9999"}},
		{ID: "b", Data: gwmodels.Record{"phone": "22"}},
		{ID: "c", Data: gwmodels.Record{"phone": " 11 9999 "}},
		{ID: "d", Data: gwmodels.Record{"phone": "   "}},
		{ID: "e", Data: gwmodels.Record{"phone": 22}},
		{ID: "f", Data: gwmodels.Record{"phone": "05"}},
		{ID: "g", Data: gwmodels.Record{"phone": "05"}},
		{ID: "h", Data: gwmodels.Record{}},
		{ID: "i", Data: gwmodels.Record{}},
	}

	groups := GroupDuplicates(records)
	require.Len(t, groups, 2)

	assert.Equal(t, "05", groups[0].Phone)
	assert.Equal(t, "11 9999", groups[1].Phone)
	require.Len(t, groups[1].Customers, 2)
	assert.Equal(t, "a", groups[1].Customers[0].ID)
	assert.Equal(t, "c", groups[1].Customers[1].ID)
}

func TestFindDuplicatesAfterDedupIsEmpty(t *testing.T) {
	gw := &fakeGateway{}
	d := NewDedupCoordinator(gw)
	ctx := context.Background()

	for _, phone := range []string{"1", " 1", "2", "1 "} {
		_, err := d.CreateIfAbsent(ctx, joao(phone), "saleOrder")
		require.NoError(t, err)
	}

	groups, err := FindDuplicates(ctx, gw)
	require.NoError(t, err)
	assert.Empty(t, groups)
}
