package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPairKeyIsSymmetric(t *testing.T) {
	for i := 0; i < 50; i++ {
		a, b := primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex()
		ab, err := PairKey(a, b)
		require.NoError(t, err)
		ba, err := PairKey(b, a)
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
	}
}

func TestPairKeyFormat(t *testing.T) {
	key, err := PairKey("u2", "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1_u2", key)

	key, err = PairKey("507f1f77bcf86cd799439011", "507f191e810c19729de860ea")
	require.NoError(t, err)
	assert.Equal(t, "507f191e810c19729de860ea_507f1f77bcf86cd799439011", key)
}

func TestPairKeyRejectsEmpty(t *testing.T) {
	_, err := PairKey("", "u1")
	assert.ErrorIs(t, err, ErrEmptyParticipant)
	_, err = PairKey("u1", "")
	assert.ErrorIs(t, err, ErrEmptyParticipant)
}
