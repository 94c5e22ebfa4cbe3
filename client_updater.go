package noisedaq

// Contains the client updater, which publishes JSON-encoded messages giving
// the latest noisedaq state on the status port.

import (
	"encoding/json"
	"fmt"

	"github.com/pebbe/zmq4"
)

// ClientUpdate carries the messages to be published on the status port.
type ClientUpdate struct {
	tag   string
	state interface{}
}

var clientMessageChan = make(chan ClientUpdate, 10)

// PublishUpdate queues one message for the status publisher. It never
// blocks; if no publisher is draining the channel, the message is dropped.
func PublishUpdate(tag string, state interface{}) {
	select {
	case clientMessageChan <- ClientUpdate{tag: tag, state: state}:
	default:
	}
}

// RunClientUpdater forwards any queued ClientUpdate to the ZMQ publisher
// socket, as a 2-part message: tag frame, then JSON frame. It terminates
// when the abort channel closes.
func RunClientUpdater(portstatus int, abort <-chan struct{}) {
	hostname := fmt.Sprintf("tcp://*:%d", portstatus)
	pubSocket, err := zmq4.NewSocket(zmq4.PUB)
	if err != nil {
		ProblemLogger.Printf("could not create status PUB socket: %s", err.Error())
		return
	}
	defer pubSocket.Close()
	if err = pubSocket.Bind(hostname); err != nil {
		ProblemLogger.Printf("could not bind status PUB socket to %s: %s", hostname, err.Error())
		return
	}

	for {
		select {
		case <-abort:
			return
		case update := <-clientMessageChan:
			message, err := json.Marshal(update.state)
			if err != nil {
				ProblemLogger.Printf("could not marshal %q update: %s", update.tag, err.Error())
				continue
			}
			UpdateLogger.Printf("%s %s", update.tag, message)
			if _, err := pubSocket.SendMessage(update.tag, message); err != nil {
				ProblemLogger.Printf("could not publish %q update: %s", update.tag, err.Error())
			}
		}
	}
}
