// Package nats mirrors rig events onto NATS and accepts camera control
// requests over it.
//
// # Subjects
//
//	grabnode.cameras.{id}.acquisition   # AcquisitionChangedEvent
//	grabnode.cameras.{id}.feed          # FeedStateChangedEvent
//	grabnode.cameras.{id}.mode          # ModeSwitchedEvent
//	grabnode.cameras.{id}.exposure      # ExposureChangedEvent
//	grabnode.cameras.{id}.added         # CameraAddedEvent
//	grabnode.cameras.{id}.removed       # CameraRemovedEvent
//	grabnode.inventory.reloaded         # InventoryReloadedEvent
//	grabnode.control.{id}               # ControlMessage request, ControlReply response
//
// Event payloads are the JSON form of the events package types. Publishing
// is fire-and-forget core NATS; control uses request/reply.
//
// # Debugging with nats CLI
//
//	nats sub "grabnode.>"
//	nats req grabnode.control.1 '{"action":"start"}'
//	nats req grabnode.control.1 '{"action":"mode","mode":"external"}'
package nats
