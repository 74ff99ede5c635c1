package mqtt

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"wappi2mqtt/credentials"
	"wappi2mqtt/logger"
)

type CommandMessage struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params"`
}

// Controller is what broker commands act on; session.Watcher satisfies it.
type Controller interface {
	Disconnect()
	ConnectFromStore(store credentials.Store) error
}

// Commander executes commands published on the commands topic.
type Commander struct {
	controller Controller
	store      credentials.Store
	logger     logger.Logger
}

func NewCommander(controller Controller, store credentials.Store, logger logger.Logger) *Commander {
	return &Commander{
		controller: controller,
		store:      store,
		logger:     logger,
	}
}

// HandleCommand matches MessageHandler.
func (c *Commander) HandleCommand(topic string, payload []byte) {
	c.logger.Info("Received command on topic: %s", topic)

	var cmdMsg CommandMessage
	if err := json.Unmarshal(payload, &cmdMsg); err != nil {
		c.logger.Error("Failed to parse command message: %v", err)
		return
	}

	if err := c.Execute(cmdMsg); err != nil {
		c.logger.Error("Failed to execute command %s: %v", cmdMsg.Command, err)
	} else {
		c.logger.Info("Successfully executed command: %s", cmdMsg.Command)
	}
}

func (c *Commander) Execute(cmd CommandMessage) error {
	switch cmd.Command {
	case "connect":
		return c.handleConnect(cmd.Params)
	case "disconnect":
		c.controller.Disconnect()
		return nil
	case "set_token":
		token, err := tokenParam(cmd.Params)
		if err != nil {
			return err
		}
		return c.store.Set(token)
	case "clear_token":
		return c.store.Clear()
	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}
}

// handleConnect stores a token given in params, then connects with the
// stored credential.
func (c *Commander) handleConnect(params map[string]any) error {
	if _, present := params["token"]; present {
		token, err := tokenParam(params)
		if err != nil {
			return err
		}
		if err := c.store.Set(token); err != nil {
			return err
		}
	}
	return c.controller.ConnectFromStore(c.store)
}

var errInvalidToken = errors.New("missing or invalid 'token' parameter")

func tokenParam(params map[string]any) (string, error) {
	token, ok := params["token"].(string)
	if !ok || token == "" {
		return "", errInvalidToken
	}
	return token, nil
}
