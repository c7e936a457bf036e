package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmpsFromKWThreePhase(t *testing.T) {

	assert := assert.New(t)

	// 11 kW on 3x230 V is 15.9 A per phase
	assert.Equal(15.9, AmpsFromKW(11.0, 230, 3))
	// 3.7 kW on 3x230 V is 5.4 A per phase
	assert.Equal(5.4, AmpsFromKW(3.7, 230, 3))
}

func TestAmpsFromKWSinglePhase(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(16.1, AmpsFromKW(3.7, 230, 1))
}

func TestAmpsFromKWZeroTarget(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(0.0, AmpsFromKW(0, 230, 3))
	assert.Equal(0.0, AmpsFromKW(-1, 230, 3))
	assert.Equal(0.0, AmpsFromKW(7.4, 0, 3))
	assert.Equal(0.0, AmpsFromKW(7.4, 230, 0))
}
