package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	before := testutil.ToFloat64(exchangeFailures.WithLabelValues(ClassFraming))
	RecordRequest("RTM_GETLINK")
	RecordReceive(128)
	beforeAcks := testutil.ToFloat64(exchangeMessages.WithLabelValues(KindAck))
	RecordMessages(KindData, 2)
	RecordMessages(KindAck, 1)
	RecordMessages(KindAck, 0)
	RecordFailure(ClassFraming)
	RecordExchange(3*time.Millisecond, true)

	if got := testutil.ToFloat64(exchangeFailures.WithLabelValues(ClassFraming)); got != before+1 {
		t.Fatalf("framing failures: got %v want %v", got, before+1)
	}
	if got := testutil.ToFloat64(exchangeMessages.WithLabelValues(KindAck)); got != beforeAcks+1 {
		t.Fatalf("ack messages: got %v want %v", got, beforeAcks+1)
	}
	if got := testutil.ToFloat64(exchangeReceiveBytes); got < 128 {
		t.Fatalf("receive bytes not recorded: %v", got)
	}

	var buf bytes.Buffer
	if err := WriteText(&buf); err != nil {
		t.Fatalf("write text: %v", err)
	}
	if !strings.Contains(buf.String(), "nlprobe_exchange_requests_total") {
		t.Fatalf("missing request counter in exposition:\n%s", buf.String())
	}
}

func TestLogExchangeLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.WarnLevel)

	LogExchange(logger, "RTM_GETLINK", 1, 2, time.Millisecond, "", nil)
	if buf.Len() != 0 {
		t.Fatalf("successful exchange logged above debug: %s", buf.String())
	}
	LogExchange(logger, "RTM_GETLINK", 2, 0, time.Millisecond, ClassProtocol, errors.New("kernel error"))
	if !strings.Contains(buf.String(), `"level":"error"`) || !strings.Contains(buf.String(), `"class":"protocol"`) {
		t.Fatalf("unexpected log line: %s", buf.String())
	}
}
