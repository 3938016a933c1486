// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package leader

import (
	"encoding/json"
	"net"
	"os"

	"github.com/docker/libkv/store"
	"github.com/pkg/errors"
)

// ID is the value a leader stores in its election node.
type ID struct {
	Hostname   string `json:"hostname"`
	IP         string `json:"ip"`
	HTTPPort   int    `json:"http"`
	ServerName string `json:"server_name"`
	Version    string `json:"version,omitempty"`
}

// NewID returns the serialized ID of this process.
func NewID(httpPort int, serverName, version string) (string, error) {
	ip, err := listenIP()
	if err != nil {
		return "", errors.Wrap(err, "failed to get ip")
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "", errors.Wrap(err, "failed to get hostname")
	}
	b, err := json.Marshal(&ID{
		Hostname:   hostname,
		IP:         ip.String(),
		HTTPPort:   httpPort,
		ServerName: serverName,
		Version:    version,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseID parses the value of an election node.
func ParseID(value []byte) (*ID, error) {
	id := &ID{}
	if err := json.Unmarshal(value, id); err != nil {
		return nil, errors.Wrap(err, "failed to parse leader id")
	}
	return id, nil
}

// CurrentLeader reads the ID of the leader of role. store.ErrKeyNotFound is
// returned while nobody leads.
func CurrentLeader(kv store.Store, cfg ElectionConfig, role string) (*ID, error) {
	pair, err := kv.Get(leaderPath(cfg.Root, role))
	if err != nil {
		return nil, err
	}
	return ParseID(pair.Value)
}

// scoreAddr rates how likely addr is reachable from other machines. IPv4
// scores 300, non-loopback 100 more and interfaces that are up another 100.
// Unknown address types score -1.
func scoreAddr(iface net.Interface, addr net.Addr) (int, net.IP) {
	var ip net.IP
	switch a := addr.(type) {
	case *net.IPNet:
		ip = a.IP
	case *net.IPAddr:
		ip = a.IP
	default:
		return -1, nil
	}

	var score int
	if ip.To4() != nil {
		score += 300
	}
	if iface.Flags&net.FlagLoopback == 0 && !ip.IsLoopback() {
		score += 100
		if iface.Flags&net.FlagUp != 0 {
			score += 100
		}
	}
	return score, ip
}

// listenIP returns the best scoring address of this machine.
func listenIP() (net.IP, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	best := -1
	var bestIP net.IP
	for _, iface := range interfaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if score, ip := scoreAddr(iface, addr); score > best {
				best = score
				bestIP = ip
			}
		}
	}
	if best == -1 {
		return nil, errors.New("no addresses to listen on")
	}
	return bestIP, nil
}
