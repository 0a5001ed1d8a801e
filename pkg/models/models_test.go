package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyDriver(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		want   DriverClass
	}{
		{"siemens plc", "CQ.IOT.SiemensPLCDriver.dll", DriverCondition},
		{"light", "CQ.IOT.LightDriver.dll", DriverCondition},
		{"reflow", "CQ.IOT.HT.ReflowDriver.dll", DriverData},
		{"printer", "CQ.IOT.HT.PanasonicPrintingDriver.dll", DriverData},
		{"unknown", "CQ.IOT.HT.Unknown.dll", DriverOther},
		{"empty", "", DriverOther},
		{"case sensitive", "cq.iot.lightdriver.dll", DriverOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDriver(tt.driver))
		})
	}
}

func TestResolvedPath(t *testing.T) {
	day := time.Date(2025, 3, 7, 10, 0, 0, 0, time.Local)

	printer := DeviceSpec{Path: `\\10.0.0.5\logs\*`, DriverName: "CQ.IOT.HT.PanasonicPrintingDriver.dll"}
	assert.Equal(t, `\\10.0.0.5\logs\2025-03-07`, printer.ResolvedPath(day))

	other := DeviceSpec{Path: `\\10.0.0.6\logs\*`, DriverName: "CQ.IOT.HT.SPIDriver.dll"}
	assert.Equal(t, `\\10.0.0.6\logs\*`, other.ResolvedPath(day))
}

func TestDeviceSentinels(t *testing.T) {
	d := DeviceSpec{IP: NotApplicable, Account: NotApplicable, Password: "secret"}

	assert.True(t, d.Excluded())

	user, pass := d.Credentials()
	assert.Empty(t, user)
	assert.Equal(t, "secret", pass)
	assert.Equal(t, "****", d.Redacted().Password)
	assert.Equal(t, "secret", d.Password)
}

func TestHistoryKeyIgnoresCase(t *testing.T) {
	a := NewHistoryKey("a1", "Yhj1003", ItemSharePath)
	b := NewHistoryKey(" A1 ", "YHJ1003", "sharepath")

	assert.Equal(t, a, b)
}

func TestNewEnvelope(t *testing.T) {
	now := time.Date(2025, 3, 7, 8, 0, 1, 234*int(time.Millisecond), time.Local)
	rec := &ResultRecord{Code: "YHJ1003", Describe: PromptGatewayNormal}

	env := NewEnvelope(rec, now)

	assert.Equal(t, "eqp_data", env.TrxName)
	assert.Equal(t, "2025-03-07T08:00:01.234", env.RptTime)
	assert.Equal(t, "20250307080001234", env.MsgID)
	assert.Equal(t, "YHJ1003", env.BoxCode)
	require.Len(t, env.Data.Params, 1)
	assert.Equal(t, Param{K: "STATUS_MSG", V: PromptGatewayNormal}, env.Data.Params[0])

	raw, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"product_code":""`)
}

func TestConnectionOutcomeHelpers(t *testing.T) {
	missing := ConnectionOutcome{Status: ConnectionFailure, Profile: PromptDailyLogMissing}
	assert.True(t, missing.MissingDailyLog())
	assert.False(t, missing.Succeeded())

	unknown := UnknownErrorCode(1231)
	assert.Equal(t, ConnectionUnknownError, unknown.Status)
	assert.Contains(t, unknown.Message, "1231")
	assert.Equal(t, "unknown_error", unknown.Status.String())
}
