package kafkaavro

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/avrocol/pkg/logger"
	"github.com/Aleph-Alpha/avrocol/v1/avro"
	"github.com/Aleph-Alpha/avrocol/v1/avrorow"
	"github.com/Aleph-Alpha/avrocol/v1/columns"
	"github.com/Aleph-Alpha/avrocol/v1/schema_registry"
)

const orderSchema = `{
	"type": "record",
	"name": "Order",
	"fields": [
		{"name": "id", "type": "long"},
		{"name": "customer", "type": "string"}
	]
}`

var orderColumns = []columns.Spec{
	{Name: "id", Type: columns.Int64()},
	{Name: "customer", Type: columns.String_()},
}

func newTestRegistry(t *testing.T, schemas map[int]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id int
		if _, err := fmt.Sscanf(r.URL.Path, "/schemas/ids/%d", &id); err != nil {
			http.NotFound(w, r)
			return
		}
		schema, ok := schemas[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"schema": schema})
	}))
}

func encodeOrder(t *testing.T, schemaID uint32, id int64, customer string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteByte(avrorow.ConfluentMagicByte)
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], schemaID)
	buf.Write(idBuf[:])

	enc := avro.NewEncoder(&buf)
	require.NoError(t, enc.WriteLong(id))
	require.NoError(t, enc.WriteString(customer))
	return buf.Bytes()
}

func newTestConsumer(t *testing.T, registryURL string) *Consumer {
	t.Helper()
	consumer, err := NewConsumer(Config{
		Brokers:  []string{"localhost:9092"},
		Topic:    "orders",
		Columns:  orderColumns,
		Registry: schema_registry.Config{URL: registryURL},
	}, logger.NewLoggerClient(logger.Config{}), nil)
	require.NoError(t, err)
	t.Cleanup(func() { consumer.Close() })
	return consumer
}

func TestNewConsumerValidation(t *testing.T) {
	log := logger.NewLoggerClient(logger.Config{})

	_, err := NewConsumer(Config{Topic: "t", Columns: orderColumns}, log, nil)
	require.Error(t, err, "brokers are required")

	_, err = NewConsumer(Config{Brokers: []string{"b:9092"}, Columns: orderColumns}, log, nil)
	require.Error(t, err, "topic is required")

	_, err = NewConsumer(Config{Brokers: []string{"b:9092"}, Topic: "t"}, log, nil)
	require.Error(t, err, "columns are required")
}

func TestProcessMessageDecodesRow(t *testing.T) {
	server := newTestRegistry(t, map[int]string{3: orderSchema})
	defer server.Close()
	consumer := newTestConsumer(t, server.URL)

	var gotID int64
	var gotCustomer string
	handle := func(batch *columns.Batch, ext *columns.RowExtension) error {
		require.Equal(t, 1, batch.Rows())
		gotID = batch.Column(0).(*columns.Int64Column).Values[0]
		gotCustomer = batch.Column(1).(*columns.StringColumn).Values[0]
		assert.True(t, ext.ReadColumns[0])
		assert.True(t, ext.ReadColumns[1])
		return nil
	}

	message := kafka.Message{Topic: "orders", Value: encodeOrder(t, 3, 42, "ada")}
	require.NoError(t, consumer.processMessage(message, handle))
	assert.Equal(t, int64(42), gotID)
	assert.Equal(t, "ada", gotCustomer)
}

func TestProcessMessageResetsBatchBetweenMessages(t *testing.T) {
	server := newTestRegistry(t, map[int]string{3: orderSchema})
	defer server.Close()
	consumer := newTestConsumer(t, server.URL)

	var rows []int64
	handle := func(batch *columns.Batch, _ *columns.RowExtension) error {
		require.Equal(t, 1, batch.Rows(), "each message must arrive in a fresh batch")
		rows = append(rows, batch.Column(0).(*columns.Int64Column).Values[0])
		return nil
	}

	for i := int64(1); i <= 3; i++ {
		message := kafka.Message{Value: encodeOrder(t, 3, i, "c")}
		require.NoError(t, consumer.processMessage(message, handle))
	}
	assert.Equal(t, []int64{1, 2, 3}, rows)
}

func TestProcessMessageSkipsCorruptMessage(t *testing.T) {
	server := newTestRegistry(t, map[int]string{3: orderSchema})
	defer server.Close()
	consumer := newTestConsumer(t, server.URL)

	handled := 0
	handle := func(*columns.Batch, *columns.RowExtension) error {
		handled++
		return nil
	}

	corrupt := encodeOrder(t, 3, 1, "x")
	corrupt[0] = 0xff
	err := consumer.processMessage(kafka.Message{Value: corrupt}, handle)
	require.NoError(t, err, "a corrupt message is skipped, not fatal")
	assert.Zero(t, handled)

	// the stream stays usable afterwards
	require.NoError(t, consumer.processMessage(kafka.Message{Value: encodeOrder(t, 3, 2, "y")}, handle))
	assert.Equal(t, 1, handled)
}

func TestProcessMessageHandlerErrorPropagates(t *testing.T) {
	server := newTestRegistry(t, map[int]string{3: orderSchema})
	defer server.Close()
	consumer := newTestConsumer(t, server.URL)

	wantErr := errors.New("sink full")
	handle := func(*columns.Batch, *columns.RowExtension) error { return wantErr }
	err := consumer.processMessage(kafka.Message{Value: encodeOrder(t, 3, 1, "x")}, handle)
	require.ErrorIs(t, err, wantErr)
}

func TestDecodeFailureReason(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("wrap: %w", avrorow.ErrInvalidMagicByte), "bad_magic"},
		{fmt.Errorf("wrap: %w", avrorow.ErrUnionIndexOutOfRange), "union_index"},
		{fmt.Errorf("wrap: %w", schema_registry.ErrSchemaUnresolvable), "schema_unresolvable"},
		{fmt.Errorf("wrap: %w", avro.ErrTruncated), "truncated"},
		{errors.New("something else"), "other"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, decodeFailureReason(tc.err))
	}
}
