package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
	"github.com/pancudaniel7/offline-stream-watcher/internal/pkg/apperr"
	"github.com/stretchr/testify/require"
)

func TestIteratorManager_InitOneEntryPerStream(t *testing.T) {
	p := &fakeProvider{shards: map[string][]entity.Shard{
		"orders": {{ID: "shard-a"}, {ID: "shard-b"}},
	}}
	log := &testLog{}
	m := NewIteratorManager(log, p)

	require.NoError(t, m.Init(context.Background(), []string{"orders", "payments", "audit"}))

	table := m.Table()
	require.Len(t, table, 3)
	for _, name := range []string{"orders", "payments", "audit"} {
		require.False(t, table[name].Closed, name)
		require.Equal(t, "it-"+name, table[name].Token)
	}
	require.Equal(t, "shard-a", p.shardIDs["orders"])
	require.Equal(t, "shard-a", table["orders"].ShardID)
	for _, pol := range p.policies {
		require.Equal(t, entity.IteratorTrimHorizon, pol)
	}
	require.True(t, log.contains("WARN", "only the first is read"))
}

func TestIteratorManager_InitFailures(t *testing.T) {
	cases := []struct {
		name  string
		p     *fakeProvider
		check func(t *testing.T, err error)
	}{
		{
			name: "describe failure",
			p:    &fakeProvider{describeErr: map[string]error{"payments": errors.New("ResourceNotFoundException")}},
			check: func(t *testing.T, err error) {
				var de *apperr.StreamDescribeErr
				require.ErrorAs(t, err, &de)
				require.Equal(t, "payments", de.Stream)
				require.ErrorContains(t, err, "ResourceNotFoundException")
			},
		},
		{
			name: "no shards",
			p:    &fakeProvider{shards: map[string][]entity.Shard{"orders": {}}},
			check: func(t *testing.T, err error) {
				var de *apperr.StreamDescribeErr
				require.ErrorAs(t, err, &de)
			},
		},
		{
			name: "acquisition failure",
			p:    &fakeProvider{iteratorErr: map[string]error{"orders": errors.New("throttled")}},
			check: func(t *testing.T, err error) {
				var ie *apperr.IteratorAcquisitionErr
				require.ErrorAs(t, err, &ie)
				require.Equal(t, "orders", ie.Stream)
			},
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			m := NewIteratorManager(&testLog{}, tc.p)
			err := m.Init(context.Background(), []string{"orders", "payments"})
			require.Error(t, err)
			tc.check(t, err)
			require.Empty(t, m.Table())
		})
	}
}

func TestIteratorManager_Advance(t *testing.T) {
	m := NewIteratorManager(&testLog{}, &fakeProvider{})
	require.NoError(t, m.Init(context.Background(), []string{"orders", "payments", "audit"}))

	m.Advance(map[string]*entity.FetchResult{
		"orders":   {NextCursor: strPtr("tok-2")},
		"payments": {NextCursor: nil},
		"unknown":  {NextCursor: strPtr("ignored")},
	})

	table := m.Table()
	require.Equal(t, entity.Cursor{ShardID: "shardId-000000000000", Token: "tok-2"}, table["orders"])
	require.True(t, table["payments"].Closed)
	require.Equal(t, "it-audit", table["audit"].Token)
	require.NotContains(t, table, "unknown")
	require.Equal(t, []string{"audit", "orders"}, m.Open())
}
