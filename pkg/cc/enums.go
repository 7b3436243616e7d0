// Package cc implements Command Class encoding/decoding:
// application-level Z-Wave commands plus their encapsulations (Multi
// Channel, Supervision, Security S0/S2, CRC16, Transport Service).
//
// Each CC type is registered in a Registry keyed by (CCID, CommandID);
// the registry entry supplies parse/serialize hooks plus an
// ExpectedResponse predicate — a plain Go table populated at init time
// rather than source-language annotations.
package cc

// CCID identifies a Command Class family. Most are single-byte on the
// wire; CCID >= 0xF100 are extended two-byte IDs.
type CCID uint16

// CommandID identifies a command within a CC.
type CommandID uint8

// Representative CC IDs, enough to exercise the codec and every
// encapsulation layer this package implements.
const (
	CCIDBinarySwitch      CCID = 0x25
	CCIDMultilevelSwitch  CCID = 0x26
	CCIDVersion           CCID = 0x86
	CCIDMultiChannel      CCID = 0x60
	CCIDSupervision       CCID = 0x6C
	CCIDCRC16Encap        CCID = 0x56
	CCIDSecurity          CCID = 0x98 // S0
	CCIDSecurity2         CCID = 0x9F // S2
	CCIDTransportService  CCID = 0x55
)

// Binary Switch commands.
const (
	CmdBinarySwitchSet    CommandID = 0x01
	CmdBinarySwitchGet    CommandID = 0x02
	CmdBinarySwitchReport CommandID = 0x03
)

// Multilevel Switch commands.
const (
	CmdMultilevelSwitchSet          CommandID = 0x01
	CmdMultilevelSwitchGet          CommandID = 0x02
	CmdMultilevelSwitchReport       CommandID = 0x03
	CmdMultilevelSwitchStartChange  CommandID = 0x04
	CmdMultilevelSwitchStopChange   CommandID = 0x05
	CmdMultilevelSwitchSupportedGet CommandID = 0x06
	CmdMultilevelSwitchSupportedRpt CommandID = 0x07
)

// Version CC commands.
const (
	CmdVersionGet    CommandID = 0x11
	CmdVersionReport CommandID = 0x12
	CmdVersionCCGet    CommandID = 0x13
	CmdVersionCCReport CommandID = 0x14
)

// Multi Channel commands (subset needed for encapsulation + endpoint
// discovery during the Endpoints interview stage).
const (
	CmdMultiChannelCmdEncap    CommandID = 0x0D
	CmdMultiChannelEndPointGet CommandID = 0x07
	CmdMultiChannelEndPointRpt CommandID = 0x08
)

// Supervision commands.
const (
	CmdSupervisionGet    CommandID = 0x01
	CmdSupervisionReport CommandID = 0x02
)

// CRC16 Encapsulation commands.
const (
	CmdCRC16Encap CommandID = 0x01
)

// Security S0 commands (subset: nonce exchange + message encap).
const (
	CmdSecurityNonceGet       CommandID = 0x40
	CmdSecurityNonceReport    CommandID = 0x80
	CmdSecurityMessageEncap   CommandID = 0x81
)

// Security S2 commands (subset).
const (
	CmdSecurity2NonceGet     CommandID = 0x01
	CmdSecurity2NonceReport  CommandID = 0x02
	CmdSecurity2MessageEncap CommandID = 0x03
)

// Transport Service commands.
const (
	CmdTransportFirstSegment      CommandID = 0xC0
	CmdTransportSegmentComplete   CommandID = 0xE8
	CmdTransportSegmentRequest    CommandID = 0xC8
	CmdTransportSegmentWait       CommandID = 0xF0
	CmdTransportSubsequentSegment CommandID = 0xE0
)

// SupervisionStatus is the terminal outcome reported in a Supervision
// Report.
type SupervisionStatus uint8

const (
	SupervisionStatusNoSupport SupervisionStatus = 0x00
	SupervisionStatusWorking   SupervisionStatus = 0x01
	SupervisionStatusFail      SupervisionStatus = 0x02
	SupervisionStatusSuccess   SupervisionStatus = 0xFF
)

// MTU limits for Transport Service segmentation decisions (spec
// §4.3 encapsulation resolution order).
const (
	// MTUSecureS0 is the single-frame payload budget when the message
	// is S0-encrypted (less room due to IV/MAC overhead).
	MTUSecureS0 = 39
	// MTUUnencrypted is the single-frame payload budget otherwise.
	MTUUnencrypted = 46
)
