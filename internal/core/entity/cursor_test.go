package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShardIteratorTable_OpenAndClone(t *testing.T) {
	table := ShardIteratorTable{
		"payments": {Token: "p-1"},
		"orders":   {Token: "o-1"},
		"audit":    {Closed: true},
	}
	require.Equal(t, []string{"orders", "payments"}, table.Open())

	cp := table.Clone()
	cp["orders"] = Cursor{Token: "o-2"}
	require.Equal(t, "o-1", table["orders"].Token)
}

func TestServiceDefinition_Function(t *testing.T) {
	svc := &ServiceDefinition{Functions: []FunctionDefinition{{Name: "a"}, {Name: "b", Handler: "bin/b"}}}
	fn, ok := svc.Function("b")
	require.True(t, ok)
	require.Equal(t, "bin/b", fn.Handler)
	_, ok = svc.Function("c")
	require.False(t, ok)
}
