package leaks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smith-xyz/apk-dataset-generator/pkg/utils"
)

const report = `<?xml version="1.0" encoding="UTF-8"?>
<DataFlowResults FileFormatVersion="102" TerminationState="Success">
  <Results>
    <Result>
      <Sink Statement="virtualinvoke $r1.sendTextMessage()" MethodSourceSinkDefinition="&lt;android.telephony.SmsManager: void sendTextMessage(java.lang.String,java.lang.String,java.lang.String,android.app.PendingIntent,android.app.PendingIntent)&gt; -&gt; _SINK_">
        <AccessPath Value="$r2"/>
      </Sink>
      <Sink Statement="staticinvoke log" MethodSourceSinkDefinition="&lt;android.util.Log: int d(java.lang.String,java.lang.String)&gt; -&gt; _SINK_"/>
      <Sources>
        <Source Statement="getDeviceId" MethodSourceSinkDefinition="&lt;android.telephony.TelephonyManager: java.lang.String getDeviceId()&gt; -&gt; _SOURCE_"/>
      </Sources>
    </Result>
    <Result>
      <Sources/>
    </Result>
  </Results>
</DataFlowResults>`

func TestParseTwoSinksInOneResult(t *testing.T) {
	sinks, err := NewParser(utils.NewStore(), nil).Parse(strings.NewReader(report))
	require.NoError(t, err)
	require.Len(t, sinks, 2)
	assert.Equal(t, "sendTextMessage", sinks[0].Name)
	assert.Equal(t, "android.util.Log", sinks[1].DeclaringType)
}

func TestParseIgnoresSinksOutsideResults(t *testing.T) {
	doc := `<DataFlowResults><Sink MethodSourceSinkDefinition="&lt;a.B: void c()&gt;"/><Results><Result><Other><Sink MethodSourceSinkDefinition="&lt;a.B: void d()&gt;"/></Other></Result></Results></DataFlowResults>`
	sinks, err := NewParser(utils.NewStore(), nil).Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Empty(t, sinks)
}

func TestParseResetsBetweenCalls(t *testing.T) {
	parser := NewParser(utils.NewStore(), nil)
	_, err := parser.Parse(strings.NewReader(report))
	require.NoError(t, err)

	sinks, err := parser.Parse(strings.NewReader(`<DataFlowResults><Results/></DataFlowResults>`))
	require.NoError(t, err)
	assert.Empty(t, sinks)
	assert.Empty(t, parser.Sinks())
}

func TestParseMalformed(t *testing.T) {
	parser := NewParser(utils.NewStore(), nil)
	_, err := parser.Parse(strings.NewReader(report))
	require.NoError(t, err)

	sinks, err := parser.Parse(strings.NewReader(`<Results><Result><Sink MethodSourceSinkDefinition="&lt;a.B: void c()&gt;"/>`))
	assert.Error(t, err)
	assert.Empty(t, sinks)
	assert.Empty(t, parser.Sinks())
}

func TestParseWarnsOnUnparseableSink(t *testing.T) {
	handler := memory.New()
	logger := &log.Logger{Handler: handler, Level: log.InfoLevel}

	doc := `<Results><Result><Sink MethodSourceSinkDefinition="not a signature"/><Sink MethodSourceSinkDefinition="&lt;a.B: void c()&gt;"/></Result></Results>`
	sinks, err := NewParser(utils.NewStore(), logger).Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, sinks, 1)

	require.Len(t, handler.Entries, 1)
	assert.Equal(t, log.WarnLevel, handler.Entries[0].Level)
	assert.Equal(t, "not a signature", handler.Entries[0].Fields["definition"])
}

func TestParseFile(t *testing.T) {
	parser := NewParser(utils.NewStore(), nil)
	ctx := context.Background()

	_, err := parser.ParseFile(ctx, filepath.Join(t.TempDir(), "leaks.xml"))
	assert.True(t, errors.Is(err, ErrNoReport))

	path := filepath.Join(t.TempDir(), "leaks.xml")
	require.NoError(t, os.WriteFile(path, []byte(report), 0600))
	sinks, err := parser.ParseFile(ctx, path)
	require.NoError(t, err)
	assert.Len(t, sinks, 2)
}
