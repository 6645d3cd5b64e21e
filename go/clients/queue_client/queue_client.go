package queue_client

import (
	"github.com/mcdev12/slotsync/go/clients"
)

type QueueClient struct {
	*clients.BaseClient
}

func NewQueueClient(baseURL, clientName string) *QueueClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &QueueClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	if clientName != "" {
		client.SetHeader(ClientHeader, clientName)
	}
	client.SetHeader("Accept", "application/json")

	return client
}
