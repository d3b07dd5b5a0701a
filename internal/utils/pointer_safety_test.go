package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	require.Equal(t, "", Value[string](nil))
	require.Equal(t, "x", Value(Ptr("x")))
	require.Equal(t, 0, Value[int](nil))
}

func TestValueOr(t *testing.T) {
	require.Equal(t, "user", ValueOr[string](nil, "user"))
	require.Equal(t, "admin", ValueOr(Ptr("admin"), "user"))
	require.Equal(t, "", ValueOr(Ptr(""), "user"))
}
