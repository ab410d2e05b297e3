// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ammp-edge/ae-agent/internal/broker"
	"github.com/ammp-edge/ae-agent/internal/log"
	"github.com/ammp-edge/ae-agent/internal/runtimeEnv"
)

const metaPublishTimeout = 30 * time.Second

// runMQTTPubMeta publishes a handful of static node metadata fields
// once: boot time, this invocation's start time, and — best-effort,
// skipped silently if unavailable — the snap revision, architecture
// string, and SSH host key fingerprint.
func runMQTTPubMeta(_ runtimeEnv.Paths, _ []string) error {
	messages := []broker.Message{
		{Topic: topicMetaBootTime, Payload: []byte(strconv.FormatInt(bootTime(), 10))},
		{Topic: topicMetaStartTime, Payload: []byte(strconv.FormatInt(time.Now().Unix(), 10))},
	}

	if rev := os.Getenv("SNAP_REVISION"); rev != "" {
		messages = append(messages, broker.Message{Topic: topicMetaSnapRev, Payload: []byte(rev)})
	}
	if arch, err := nodeArch(); err == nil {
		messages = append(messages, broker.Message{Topic: topicMetaArch, Payload: []byte(arch)})
	} else {
		log.Debugf("mqtt-pub-meta: node architecture unavailable: %v", err)
	}
	if fp, err := sshFingerprint(); err == nil {
		messages = append(messages, broker.Message{Topic: topicMetaSSHFingerprint, Payload: []byte(fp)})
	} else {
		log.Debugf("mqtt-pub-meta: ssh fingerprint unavailable: %v", err)
	}

	log.Infof("mqtt-pub-meta: publishing %d metadata messages", len(messages))

	client, err := connectBroker("local-pub-meta")
	if err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), metaPublishTimeout)
	defer cancel()

	if err := client.Publish(ctx, messages, true); err != nil {
		return fmt.Errorf("publishing metadata: %w", err)
	}

	log.Infof("mqtt-pub-meta: successfully published")
	return nil
}

// bootTime returns the system boot time as a Unix timestamp, read from
// /proc/stat's "btime" line. It returns 0 if unavailable (non-Linux, or
// /proc not mounted), matching the spec's best-effort metadata policy.
func bootTime() int64 {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return 0
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		line := s.Text()
		if strings.HasPrefix(line, "btime ") {
			v, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, "btime ")), 10, 64)
			if err != nil {
				return 0
			}
			return v
		}
	}
	return 0
}

func nodeArch() (string, error) {
	out, err := exec.Command("uname", "-srvm").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}

func sshFingerprint() (string, error) {
	out, err := exec.Command("get_ssh_fingerprint.sh").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}
