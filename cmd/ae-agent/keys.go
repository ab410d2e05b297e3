// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

// Key-value store keys shared across subcommands.
const (
	keyNodeID    = "node_id"
	keyAccessKey = "access_key"
	keyConfig    = "config"
)

// Broker topics shared across subcommands.
const (
	topicCommand         = "d/command"
	topicConfig          = "d/config"
	topicCommandResponse = "u/command_response"

	topicMetaArch          = "u/meta/arch"
	topicMetaBootTime      = "u/meta/boot_time"
	topicMetaStartTime     = "u/meta/start_time"
	topicMetaSnapRev       = "u/meta/snap_rev"
	topicMetaSSHFingerprint = "u/meta/ssh_fingerprint"
)
