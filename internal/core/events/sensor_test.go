package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePointSensorId(t *testing.T) {
	pointId, field, ok := ParsePointSensorId(PointSensorId("cp-01", POINT_FIELD_TARGET_KW))
	assert.True(t, ok)
	assert.Equal(t, "cp-01", pointId)
	assert.Equal(t, POINT_FIELD_TARGET_KW, field)
}

func TestParsePointSensorIdUnderscoredPoint(t *testing.T) {
	pointId, field, ok := ParsePointSensorId(PointSensorId("garage_left", POINT_FIELD_SESSION_EST_END_AT))
	assert.True(t, ok)
	assert.Equal(t, "garage_left", pointId)
	assert.Equal(t, POINT_FIELD_SESSION_EST_END_AT, field)
}

func TestParsePointSensorIdRejectsFlatIds(t *testing.T) {
	_, _, ok := ParsePointSensorId(SENSOR_ID_WEATHER_RADIATION)
	assert.False(t, ok)

	_, _, ok = ParsePointSensorId("point_cp-01_unknown")
	assert.False(t, ok)
}
