package permissions

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smith-xyz/apk-dataset-generator/pkg/config"
	"github.com/smith-xyz/apk-dataset-generator/pkg/models"
	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
)

const deviceIDLine = "android.telephony.TelephonyManager.getDeviceId()Ljava/lang/String;  ::  android.permission.READ_PHONE_STATE"

func TestParseLineExample(t *testing.T) {
	method, perms, ok := ParseLine(deviceIDLine)
	require.True(t, ok)
	assert.Equal(t, []string{"android.permission.READ_PHONE_STATE"}, perms)
	assert.Equal(t, "<android.telephony.TelephonyManager: Ljava/lang/String; getDeviceId()>", method.String())
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		ok        bool
		signature string
		perms     []string
	}{
		{
			name:      "descriptor parameters",
			line:      "android.telephony.SmsManager.sendTextMessage(Ljava/lang/String;Ljava/lang/String;)V  ::  android.permission.SEND_SMS",
			ok:        true,
			signature: "<android.telephony.SmsManager: V sendTextMessage(Ljava/lang/String;Ljava/lang/String;)>",
			perms:     []string{"android.permission.SEND_SMS"},
		},
		{
			name:      "multiple permissions",
			line:      "android.location.LocationManager.getLastKnownLocation(Ljava/lang/String;)Landroid/location/Location;  ::  android.permission.ACCESS_COARSE_LOCATION, android.permission.ACCESS_FINE_LOCATION",
			ok:        true,
			signature: "<android.location.LocationManager: Landroid/location/Location; getLastKnownLocation(Ljava/lang/String;)>",
			perms:     []string{"android.permission.ACCESS_COARSE_LOCATION", "android.permission.ACCESS_FINE_LOCATION"},
		},
		{
			name:      "primitive and object descriptors",
			line:      "android.net.wifi.WifiManager.foo(ILjava/lang/String;)V  ::  android.permission.CHANGE_WIFI_STATE",
			ok:        true,
			signature: "<android.net.wifi.WifiManager: V foo(ILjava/lang/String;)>",
			perms:     []string{"android.permission.CHANGE_WIFI_STATE"},
		},
		{
			name:      "inner class",
			line:      "android.app.Activity$Stub.call(I)Z  ::  android.permission.CALL_PHONE",
			ok:        true,
			signature: "<android.app.Activity$Stub: Z call(I)>",
			perms:     []string{"android.permission.CALL_PHONE"},
		},
		{name: "missing permissions", line: "android.app.Activity.finish()V  ::  ", ok: false},
		{name: "missing delimiter", line: "android.app.Activity.finish()V android.permission.X", ok: false},
		{name: "header", line: "Permission mapping for API 25", ok: false},
		{name: "empty", line: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, perms, ok := ParseLine(tt.line)
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.signature, method.String())
			assert.Equal(t, tt.perms, perms)
		})
	}
}

func TestParseLinesIsIdempotent(t *testing.T) {
	lines := []string{
		deviceIDLine,
		"android.telephony.TelephonyManager.getLine1Number()Ljava/lang/String;  ::  android.permission.READ_PHONE_STATE, android.permission.READ_SMS",
		"garbage",
	}

	once, skipped := ParseLines(lines)
	assert.Equal(t, 1, skipped)

	twice, _ := ParseLines(append(append([]string{}, lines...), lines...))
	assert.Equal(t, once.Permissions(), twice.Permissions())
	for _, p := range once.Permissions() {
		assert.Equal(t, once.Methods(p), twice.Methods(p), "permission %s", p)
	}
	assert.Len(t, twice.Methods("android.permission.READ_PHONE_STATE"), 2)
}

func TestIndex(t *testing.T) {
	index := NewIndex()
	a := models.MethodSignature{DeclaringType: "a.A", Name: "x", ReturnType: "V"}
	b := models.MethodSignature{DeclaringType: "a.B", Name: "y", ReturnType: "void"}
	bDescriptor := models.MethodSignature{DeclaringType: "a.B", Name: "y", ReturnType: "V"}

	assert.True(t, index.Add("P2", b))
	assert.True(t, index.Add("P2", a))
	assert.True(t, index.Add("P1", a))
	assert.False(t, index.Add("P2", bDescriptor))

	assert.Equal(t, []string{"P1", "P2"}, index.Permissions())
	assert.Equal(t, []models.MethodSignature{b, a}, index.Methods("P2"))
	assert.Len(t, index.AllMethods(), 2)
	assert.Equal(t, 3, index.Pairs())
	assert.Empty(t, index.Methods("P3"))
}

func writeMapping(t *testing.T, root, dir, name, content string) {
	t.Helper()
	path := filepath.Join(root, dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	cfg, err := config.DefaultConfig()
	require.NoError(t, err)
	return NewParser(cfg, utils.NewStore(), nil)
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	writeMapping(t, root, "API25", "framework-map-25.txt", deviceIDLine+"\n")
	writeMapping(t, root, "API25", "sdk-map-25.txt", "android.hardware.Camera.open()Landroid/hardware/Camera;  ::  android.permission.CAMERA\n")
	writeMapping(t, root, "API25", "cp-map-25.txt", "content://sms  ::  android.permission.READ_SMS\n")
	writeMapping(t, root, "API26", "framework-map-26.txt", deviceIDLine+"\n")
	writeMapping(t, root, "", "framework-map-root.txt", "android.nfc.NfcAdapter.enable()Z  ::  android.permission.NFC\n")

	index, err := newTestParser(t).Load(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"android.permission.CAMERA", "android.permission.READ_PHONE_STATE"}, index.Permissions())
	assert.Len(t, index.Methods("android.permission.READ_PHONE_STATE"), 1)
}

func TestLoadUnavailable(t *testing.T) {
	parser := newTestParser(t)
	ctx := context.Background()

	missing := filepath.Join(t.TempDir(), "missing")
	_, err := parser.Load(ctx, missing)
	assert.True(t, errors.Is(err, ErrMappingUnavailable), "missing root: %v", err)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte(deviceIDLine), 0600))
	_, err = parser.Load(ctx, file)
	assert.True(t, errors.Is(err, ErrMappingUnavailable), "file root: %v", err)

	empty := t.TempDir()
	writeMapping(t, empty, "API25", "README.md", deviceIDLine)
	_, err = parser.Load(ctx, empty)
	assert.True(t, errors.Is(err, ErrMappingUnavailable), "no mapping files: %v", err)

	garbage := t.TempDir()
	writeMapping(t, garbage, "API25", "framework-map-25.txt", strings.Repeat("not a mapping line\n", 3))
	_, err = parser.Load(ctx, garbage)
	assert.True(t, errors.Is(err, ErrMappingUnavailable), "unparseable lines: %v", err)
}
