// Package callkit implements a client library for real-time voice and
// video calling on top of an opaque native calling engine.
//
// The package provides the application-facing object model: CallClient
// owns the engine binding, CallAgent binds an authenticated identity,
// and Call tracks one live conversation through its state machine.
// Remote parties, their video streams, and the local device catalog are
// exposed as observable snapshots with batched change events.
//
// # Basic Usage
//
//	cred, err := callkit.NewStaticCredential(token)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := callkit.NewCallClient(eng, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Dispose()
//
//	agent, err := client.CreateCallAgent(ctx, cred, &callkit.AgentOptions{
//		DisplayName: "Alice",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	callee := identifier.CommunicationUser{ID: "user-guid"}
//	c, err := agent.StartCall(ctx, []identifier.Identifier{callee}, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	c.OnStateChanged(func(s call.State) {
//		log.Printf("call state: %s", s)
//	})
//
// # Incoming Calls
//
// Inbound calls surface through the agent's incoming event and resolve
// exactly once, by Accept, Reject, or the caller hanging up first:
//
//	agent.OnIncomingCall(func(ic *callkit.IncomingCall) {
//		c, err := ic.Accept(ctx, nil)
//		if err != nil {
//			log.Printf("accept: %v", err)
//			return
//		}
//		_ = c
//	})
//
// # Events
//
// Every observable property pairs a synchronous getter with an On/Off
// subscription returning an event.Subscription token. Collection-valued
// properties (calls, participants, streams, devices) emit batched
// added/removed deltas; the snapshot is updated before the handler runs.
//
// # Features
//
// Optional capabilities such as recording state, live captions, and
// transfer hang off calls and the client through a lazy feature
// registry; see the feature package.
package callkit
