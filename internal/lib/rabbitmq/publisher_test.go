package rabbitmq

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

func TestPublishMessage(t *testing.T) {
	type testMsg struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	t.Run("publishes persistent json", func(t *testing.T) {
		pub := new(MockPublisher)
		msg := testMsg{ID: 1, Name: "Hello"}

		pub.On("Publish", NotificationsExchange, EmailRoutingKey, false, false,
			mock.MatchedBy(func(p amqp.Publishing) bool {
				var got testMsg
				if err := json.Unmarshal(p.Body, &got); err != nil {
					return false
				}
				return got == msg &&
					p.ContentType == "application/json" &&
					p.DeliveryMode == amqp.Persistent &&
					p.MessageId != "" &&
					!p.Timestamp.IsZero()
			})).Return(nil).Once()

		err := PublishMessage(pub, NotificationsExchange, EmailRoutingKey, msg)
		require.NoError(t, err)
		pub.AssertExpectations(t)
	})

	t.Run("marshal error", func(t *testing.T) {
		pub := new(MockPublisher)
		badMsg := struct {
			Ch chan int `json:"ch"`
		}{Ch: make(chan int)}

		err := PublishMessage(pub, "", "any", badMsg)
		require.Error(t, err)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("channel error", func(t *testing.T) {
		pub := new(MockPublisher)
		pub.On("Publish", GenerationExchange, JobRoutingKey, false, false, mock.Anything).
			Return(errors.New("channel closed")).Once()

		err := PublishMessage(pub, GenerationExchange, JobRoutingKey, testMsg{ID: 2})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rabbitmq.PublishMessage")
		assert.Contains(t, err.Error(), "channel closed")
		assert.Contains(t, err.Error(), GenerationExchange+"/"+JobRoutingKey)
	})
}
