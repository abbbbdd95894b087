package kafka

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/IBM/sarama"
)

type KafkaClient struct {
	consumer  sarama.ConsumerGroup
	producer  sarama.SyncProducer
	brokers   []string
	batchSize int
}

type Message struct {
	Key      string
	Value    []byte
	Headers  map[string]string
	internal *sarama.ConsumerMessage
}

type Handler func(messages []Message) error

// NewKafkaClient cria o producer e, quando groupID não é vazio, o consumer group.
func NewKafkaClient(brokers string, groupID string, batchSize int) (*KafkaClient, error) {
	brokerList := strings.Split(brokers, ",")

	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0

	// Consumer config - comandos de espelho são pequenos e a latência importa
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetOldest // nenhum comando pode ser perdido
	config.Consumer.Group.Session.Timeout = 30 * time.Second
	config.Consumer.Group.Heartbeat.Interval = 10 * time.Second
	config.Consumer.MaxProcessingTime = 30 * time.Second
	config.Consumer.Fetch.Default = 1024 * 1024
	config.Consumer.MaxWaitTime = 100 * time.Millisecond
	config.ChannelBufferSize = batchSize * 2 // Buffer based on batch size

	// Producer config - auditoria e espelho precisam de confirmação de todas as réplicas
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 10 * time.Millisecond
	config.Producer.MaxMessageBytes = 1024 * 1024 // 1MB max por mensagem

	// Consumer Group (só para os processos que consomem)
	var consumer sarama.ConsumerGroup
	if groupID != "" {
		var err error
		consumer, err = sarama.NewConsumerGroup(brokerList, groupID, config)
		if err != nil {
			return nil, fmt.Errorf("failed to create consumer group: %w", err)
		}
	}

	// Producer
	producer, err := sarama.NewSyncProducer(brokerList, config)
	if err != nil {
		if consumer != nil {
			consumer.Close()
		}
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	log.Printf("Kafka client initialized with batch size: %d", batchSize)

	return &KafkaClient{
		consumer:  consumer,
		producer:  producer,
		brokers:   brokerList,
		batchSize: batchSize,
	}, nil
}

func (k *KafkaClient) Consumer(ctx context.Context, handler Handler, topic string) error {
	if k.consumer == nil {
		return fmt.Errorf("kafka client was created without a consumer group")
	}

	consumerHandler := newConsumerGroupHandler(handler, k.batchSize)

	for {
		select {
		case <-ctx.Done():
			log.Println("Kafka consumer context cancelled")
			return nil
		default:
			if err := k.consumer.Consume(ctx, []string{topic}, consumerHandler); err != nil {
				log.Printf("Error consuming from topic %s: %v", topic, err)
				time.Sleep(5 * time.Second) // Retry delay
				continue
			}
		}
	}
}

func (k *KafkaClient) Producer(messages []Message, topic string) error {
	if len(messages) == 0 {
		return nil
	}

	batchSize := len(messages)
	log.Printf("Sending batch of %d messages to topic %s", batchSize, topic)

	// Prepare all messages
	kafkaMessages := make([]*sarama.ProducerMessage, batchSize)
	for i, msg := range messages {
		kafkaMessages[i] = &sarama.ProducerMessage{
			Topic:   topic,
			Key:     sarama.StringEncoder(msg.Key),
			Value:   sarama.ByteEncoder(msg.Value),
			Headers: recordHeaders(msg.Headers),
		}
	}

	// Send all messages asynchronously and collect results
	type result struct {
		partition int32
		offset    int64
		err       error
		index     int
	}

	resultChan := make(chan result, batchSize)

	// Send all messages concurrently
	for i, kafkaMsg := range kafkaMessages {
		go func(idx int, msg *sarama.ProducerMessage) {
			partition, offset, err := k.producer.SendMessage(msg)
			resultChan <- result{
				partition: partition,
				offset:    offset,
				err:       err,
				index:     idx,
			}
		}(i, kafkaMsg)
	}

	// Collect all results
	var errors []error
	successCount := 0

	for i := 0; i < batchSize; i++ {
		res := <-resultChan
		if res.err != nil {
			errors = append(errors, fmt.Errorf("message %d failed: %w", res.index, res.err))
		} else {
			successCount++
		}
	}

	// Log consolidated results
	if len(errors) > 0 {
		log.Printf("Batch completed with errors: %d/%d failed", len(errors), batchSize)
		for _, err := range errors {
			log.Printf("  - %v", err)
		}
		return fmt.Errorf("batch send failed: %d/%d messages failed", len(errors), batchSize)
	}

	log.Printf("Batch sent successfully: %d messages to topic %s", successCount, topic)
	return nil
}

func (k *KafkaClient) Close() error {
	var errs []error

	if k.consumer != nil {
		if err := k.consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close consumer: %w", err))
		}
	}

	if err := k.producer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close producer: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing kafka client: %v", errs)
	}

	return nil
}

// consumerGroupHandler implementa sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	handler      Handler
	batchSize    int
	batchTimeout time.Duration
	retryBackoff time.Duration
}

func newConsumerGroupHandler(handler Handler, batchSize int) *consumerGroupHandler {
	return &consumerGroupHandler{
		handler:      handler,
		batchSize:    batchSize,
		batchTimeout: 2 * time.Second,
		retryBackoff: 5 * time.Second,
	}
}

func (h *consumerGroupHandler) Setup(session sarama.ConsumerGroupSession) error {
	log.Printf("Kafka consumer group session setup - batch size: %d", h.batchSize)
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Println("Kafka consumer group session cleanup")
	return nil
}

// ConsumeClaim devolve erro quando um lote falha: a sessão é encerrada e o
// próximo Consume recomeça do offset do lote que falhou.
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Printf("Starting consumer for partition %d (batch: %d, timeout: %v)",
		claim.Partition(), h.batchSize, h.batchTimeout)

	messages := make([]Message, 0, h.batchSize)
	timer := time.NewTimer(h.batchTimeout)
	defer timer.Stop()

	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				// Channel closed, process remaining messages
				return h.processBatch(session, messages)
			}

			messages = append(messages, Message{
				Key:      string(message.Key),
				Value:    message.Value,
				Headers:  messageHeaders(message.Headers),
				internal: message,
			})

			if len(messages) >= h.batchSize {
				if err := h.processBatch(session, messages); err != nil {
					return err
				}
				messages = messages[:0]
				timer.Reset(h.batchTimeout)
			}

		case <-timer.C:
			if err := h.processBatch(session, messages); err != nil {
				return err
			}
			messages = messages[:0]
			timer.Reset(h.batchTimeout)

		case <-session.Context().Done():
			return h.processBatch(session, messages)
		}
	}
}

func (h *consumerGroupHandler) processBatch(session sarama.ConsumerGroupSession, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	log.Printf("Processing batch of %d messages", len(messages))

	if err := h.handler(messages); err != nil {
		first := messages[0].internal
		if first == nil {
			return fmt.Errorf("batch failed: %w", err)
		}

		// Nada do lote é marcado e o offset volta para o início dele;
		// um lote posterior não pode fazer o commit passar por cima deste.
		session.ResetOffset(first.Topic, first.Partition, first.Offset, "")
		log.Printf("Handler error for batch at %s/%d offset %d, retrying in %v: %v",
			first.Topic, first.Partition, first.Offset, h.retryBackoff, err)

		select {
		case <-time.After(h.retryBackoff):
		case <-session.Context().Done():
		}
		return fmt.Errorf("batch at %s/%d offset %d failed: %w", first.Topic, first.Partition, first.Offset, err)
	}

	for _, msg := range messages {
		if msg.internal != nil {
			session.MarkMessage(msg.internal, "")
		}
	}

	log.Printf("Successfully processed batch of %d messages", len(messages))
	return nil
}

func recordHeaders(headers map[string]string) []sarama.RecordHeader {
	if len(headers) == 0 {
		return nil
	}

	records := make([]sarama.RecordHeader, 0, len(headers))
	for key, value := range headers {
		records = append(records, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
	}
	return records
}

func messageHeaders(records []*sarama.RecordHeader) map[string]string {
	if len(records) == 0 {
		return nil
	}

	headers := make(map[string]string, len(records))
	for _, record := range records {
		if record != nil {
			headers[string(record.Key)] = string(record.Value)
		}
	}
	return headers
}
