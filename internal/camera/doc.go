// Package camera coordinates camera acquisition state with the subscriptions
// that consume its frames.
//
// A Camera owns an ordered set of Subscriptions and a shared acquiring flag.
// Device work is delegated to a Provider, usually through a Binding the
// caller can rebind at runtime. Starting a subscription's feed registers it
// with its camera and starts acquisition; stopping the feed does the reverse.
//
// Acquisition changes are queued per camera and settle asynchronously:
// StartAcquisition and StopAcquisition return an *Op whose Done channel
// closes once IsAcquiring reflects the provider's answer.
package camera
