package structural

import "fmt"

// Kind is the closed set of circuit element kinds.
type Kind int

const (
	// Port is an external interface of the circuit.
	Port Kind = iota
	// DataReg is a full register that holds a data token at reset.
	DataReg
	// ControlReg is a register driving control logic.
	ControlReg
	// NullReg is a register that holds a spacer at reset.
	NullReg
	// UnsafeReg is a single-stage register with an internal output channel.
	UnsafeReg
)

// Cost model constants, in the same unit as channel delays.
const (
	RegisterDelay   = 10.0
	RegisterCost    = 10.0
	ControlRegCost  = 50.0
	StageSeparator  = "/s"
	stageDelay      = RegisterDelay
	numKinds        = int(UnsafeReg) + 1
	unknownKindName = "Unknown"
)

var kindNames = [numKinds]string{
	Port:       "Port",
	DataReg:    "DataReg",
	ControlReg: "ControlReg",
	NullReg:    "NullReg",
	UnsafeReg:  "UnsafeReg",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= numKinds {
		return unknownKindName
	}
	return kindNames[k]
}

// ParseKind maps the keyword used in the text format to a Kind.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// BaseCost is the intrinsic switching cost of an element of this kind.
func (k Kind) BaseCost() float64 {
	switch k {
	case Port:
		return 0
	case DataReg, NullReg, UnsafeReg:
		return RegisterCost
	case ControlReg:
		return ControlRegCost
	default:
		panic(fmt.Sprintf("structural: unknown kind %d", int(k)))
	}
}

// IsPort reports whether the element is an external port.
func (k Kind) IsPort() bool {
	switch k {
	case Port:
		return true
	case DataReg, ControlReg, NullReg, UnsafeReg:
		return false
	default:
		panic(fmt.Sprintf("structural: unknown kind %d", int(k)))
	}
}

// Phase is the handshake phase a channel is in at reset. It decides which of
// the four places of the channel carries the initial token.
type Phase int

const (
	AckNull Phase = iota
	ReqData
	AckData
	ReqNull
)

func (p Phase) String() string {
	switch p {
	case AckNull:
		return "AckNull"
	case ReqData:
		return "ReqData"
	case AckData:
		return "AckData"
	case ReqNull:
		return "ReqNull"
	default:
		return unknownKindName
	}
}
