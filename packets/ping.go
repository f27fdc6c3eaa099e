// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package packets

// PingReq is the MQTT PINGREQ packet.
type PingReq struct{}

func (p *PingReq) Type() byte {
	return PingReqType
}

func (p *PingReq) Encode() []byte {
	return FixedHeader{PacketType: PingReqType}.Encode()
}

// PingResp is the MQTT PINGRESP packet.
type PingResp struct{}

func (p *PingResp) Type() byte {
	return PingRespType
}

func (p *PingResp) Encode() []byte {
	return FixedHeader{PacketType: PingRespType}.Encode()
}

// Disconnect is the MQTT V3 DISCONNECT packet.
type Disconnect struct{}

func (d *Disconnect) Type() byte {
	return DisconnectType
}

func (d *Disconnect) Encode() []byte {
	return FixedHeader{PacketType: DisconnectType}.Encode()
}
