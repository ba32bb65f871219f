package sinks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
)

const definitions = `% Sources
<android.telephony.TelephonyManager: java.lang.String getDeviceId()> -> _SOURCE_
<android.location.Location: double getLatitude()> android.permission.ACCESS_FINE_LOCATION -> _SOURCE_

% Sinks
<android.telephony.SmsManager: void sendTextMessage(java.lang.String,java.lang.String,java.lang.String,android.app.PendingIntent,android.app.PendingIntent)> android.permission.SEND_SMS -> _SINK_
<android.util.Log: int d(java.lang.String,java.lang.String)> -> _SINK_
<android.util.Log: int d(java.lang.String,java.lang.String)> -> _SINK_
<android.content.Intent: android.content.Intent putExtra(java.lang.String,java.lang.String)> -> _BOTH_
this line is not a definition
`

func TestParseLine(t *testing.T) {
	def, ok := ParseLine("<android.util.Log: int i(java.lang.String,java.lang.String)> -> _SINK_")
	require.True(t, ok)
	assert.Equal(t, RoleSink, def.Role)
	assert.Equal(t, "android.util.Log", def.Method.DeclaringType)
	assert.Equal(t, "i", def.Method.Name)
	assert.Equal(t, []string{"java.lang.String", "java.lang.String"}, def.Method.Params)

	for _, line := range []string{"", "% comment", "<a.B: void c()>", "<a.B: void c()> -> _UNKNOWN_"} {
		_, ok := ParseLine(line)
		assert.False(t, ok, "line %q", line)
	}
}

func TestParseKeepsDistinctSinksInOrder(t *testing.T) {
	catalog := Parse(splitLines(definitions))
	require.Len(t, catalog, 3)
	assert.Equal(t, "sendTextMessage", catalog[0].Name)
	assert.Equal(t, "d", catalog[1].Name)
	assert.Equal(t, "putExtra", catalog[2].Name)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SourcesAndSinks.txt")
	require.NoError(t, os.WriteFile(path, []byte(definitions), 0600))

	catalog, err := Load(context.Background(), utils.NewStore(), path, nil)
	require.NoError(t, err)
	assert.Len(t, catalog, 3)

	_, err = Load(context.Background(), utils.NewStore(), filepath.Join(t.TempDir(), "missing.txt"), nil)
	assert.Error(t, err)
}

func splitLines(s string) []string {
	return strings.Split(s, "\n")
}
