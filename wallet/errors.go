// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import "errors"

var (
	// ErrInsufficientFunds is returned when a spend exceeds the
	// effective balance, overdraft included.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrChannelExists is returned when opening a channel to a peer
	// that already has one open.
	ErrChannelExists = errors.New("channel already open with peer")

	// ErrChannelNotFound is returned when operating on a channel that
	// does not exist.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrChannelClosed is returned when updating a channel that is no
	// longer open.
	ErrChannelClosed = errors.New("channel not open")

	// ErrChannelBalance is returned when a channel update does not
	// conserve the channel capacity.
	ErrChannelBalance = errors.New("channel update does not conserve capacity")

	// ErrReceiptSignature is returned when a relay receipt carries a
	// missing or cryptographically invalid signature.
	ErrReceiptSignature = errors.New("invalid receipt signature")

	// ErrReceiptAmount is returned when a receipt's amount does not
	// match the pricing of its metered data.
	ErrReceiptAmount = errors.New("receipt amount does not match pricing")

	// ErrReceiptFromFuture is returned when a receipt is stamped ahead
	// of the local clock.
	ErrReceiptFromFuture = errors.New("receipt timestamp in the future")

	// ErrReceiptExpired is returned when a receipt is older than the
	// acceptance window.
	ErrReceiptExpired = errors.New("receipt older than acceptance window")
)
