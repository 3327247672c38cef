package kafka

import (
	"github.com/IBM/sarama"
	"github.com/xdg-go/scram"
)

var _ sarama.SCRAMClient = (*scramClient)(nil)

// scramClient adapts an xdg-go SCRAM conversation to the callback
// interface sarama drives during SASL authentication.
type scramClient struct {
	hashFn       scram.HashGeneratorFcn
	conversation *scram.ClientConversation
}

func newSCRAMClient(hashFn scram.HashGeneratorFcn) *scramClient {
	return &scramClient{hashFn: hashFn}
}

// Begin prepares a fresh conversation for the given credentials.
func (c *scramClient) Begin(username, password, authzID string) error {
	client, err := c.hashFn.NewClient(username, password, authzID)
	if err != nil {
		return err
	}
	c.conversation = client.NewConversation()
	return nil
}

// Step answers one server challenge.
func (c *scramClient) Step(challenge string) (string, error) {
	return c.conversation.Step(challenge)
}

// Done reports whether the conversation has finished.
func (c *scramClient) Done() bool {
	return c.conversation.Done()
}
