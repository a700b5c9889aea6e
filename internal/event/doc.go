/*
Package event provides a type-safe pub/sub event bus for the client.

It decouples the realtime channel and session manager from the UI
surfaces that react to them: publishers emit events and subscribers
react without direct dependencies.

The package is built on top of watermill's gochannel for infrastructure
while keeping direct-call semantics to preserve type information. Both
synchronous and asynchronous publishing are available.

# Event Types

Session:
  - session.changed: session status transition (restore, login, logout)

Realtime channel:
  - channel.state: connection state transition

Cross-cutting signals:
  - notification.requested: a user-visible notice should be shown
  - meeting.invalidated: cached meeting data is stale and should refresh

# Usage

	unsub := event.Subscribe(event.MeetingInvalidated, func(e event.Event) {
		data := e.Data.(event.MeetingInvalidatedData)
		refresh(data.MeetingID)
	})
	defer unsub()

Subscribers registered with Subscribe receive only their event type;
SubscribeAll receives everything. Publish delivers asynchronously,
PublishSync in subscription order before returning.
*/
package event
