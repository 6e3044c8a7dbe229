package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/wager_bank/internal/logging"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaNotifierEncodesMessage(t *testing.T) {
	w := &recordingWriter{}
	n := NewKafkaNotifier(w)

	err := n.Send(context.Background(), Message{Kind: KindRoundSettled, Key: "bank-1", Body: "player won", Data: map[string]int64{"amount": 50}})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	require.Equal(t, "bank-1", string(w.msgs[0].Key))
	require.Equal(t, KindRoundSettled, string(w.msgs[0].Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	require.Equal(t, KindRoundSettled, decoded["kind"])
	require.NotEmpty(t, decoded["occurred_at"])
}

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("broker down")
	ok := &recordingWriter{}
	m := Multi{
		NewLoggerNotifier(logging.Discard()),
		NewKafkaNotifier(&recordingWriter{err: boom}),
		NewKafkaNotifier(ok),
		nil,
	}

	err := m.Send(context.Background(), Message{Kind: KindBankInitialized, Key: "bank-1"})
	require.ErrorIs(t, err, boom)
	require.Len(t, ok.msgs, 1)
}
