package views

import (
	"errors"
	"strings"
	"testing"

	"github.com/abgdnv/catalogadmin/internal/catalog"
	"github.com/abgdnv/catalogadmin/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewList(t *testing.T) {
	rice := catalog.Product{ID: 2, ProductName: "Rice", Category: "Food", Price: 12000, Discount: catalog.Float(10)}

	testCases := []struct {
		name          string
		state         store.State
		expectLoading bool
		expectError   string
		expectRows    int
	}{
		{
			name:          "Idle store shows loading",
			state:         store.State{Status: store.StatusIdle},
			expectLoading: true,
		},
		{
			name:       "Loaded",
			state:      store.State{Status: store.StatusSucceeded, Items: []catalog.Product{rice, tea}},
			expectRows: 2,
		},
		{
			name:        "Failed keeps previous rows",
			state:       store.State{Status: store.StatusFailed, Err: errors.New("boom"), Items: []catalog.Product{tea}},
			expectError: MsgLoadFailed,
			expectRows:  1,
		},
		{
			name:          "Reloading keeps previous rows",
			state:         store.State{Status: store.StatusLoading, Items: []catalog.Product{tea}},
			expectLoading: true,
			expectRows:    1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			l := NewList(tc.state, "flash")
			// then
			assert.Equal(t, tc.expectLoading, l.Loading)
			assert.Equal(t, tc.expectError, l.Error)
			assert.Len(t, l.Rows, tc.expectRows)
			assert.Equal(t, "flash", l.Flash)
		})
	}
}

func TestNewList_RowsKeepBackendOrder(t *testing.T) {
	rice := catalog.Product{ID: 2, ProductName: "Rice", Category: "Food", Price: 12000, Discount: catalog.Float(10)}

	l := NewList(store.State{Status: store.StatusSucceeded, Items: []catalog.Product{rice, tea}}, "")

	require.Len(t, l.Rows, 2)
	assert.EqualValues(t, 2, l.Rows[0].ID)
	assert.EqualValues(t, 1, l.Rows[1].ID)
	assert.NotEmpty(t, l.Rows[0].Discount)
	assert.Empty(t, l.Rows[1].Discount)
}

func TestFormatPrice(t *testing.T) {
	got := FormatPrice(5000)

	assert.True(t, strings.HasPrefix(got, "Rp "), got)
	assert.Contains(t, got, "5")
}
