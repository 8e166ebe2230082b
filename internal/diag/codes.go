package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Library tokenization
	LexInfo               Code = 1000
	LexUnterminatedString Code = 1001

	// Library syntax
	SynInfo            Code = 2000
	SynUnexpectedToken Code = 2001
	SynExpectSemicolon Code = 2002
	SynExpectString    Code = 2003
	SynExpectInt       Code = 2004
	SynExpectName      Code = 2005
	SynExpectID        Code = 2006
	SynUnknownItem     Code = 2007
	SynUnexpectedEOF   Code = 2008
	SynBadEnumValue    Code = 2009

	// Library semantics
	SemClockOnAsyncRead   Code = 3000
	SemReadItemOnPort     Code = 3001
	SemWriteItemOnPort    Code = 3002
	SemTransSelfNotSrsw   Code = 3003
	SemRdEnNeedsSrsw      Code = 3004
	SemMissingRdEn        Code = 3005
	SemMissingDims        Code = 3006
	SemMissingPorts       Code = 3007
	SemMixedClockEdge     Code = 3008
	SemUnusedDefine       Code = 3009

	// Mapping
	MapInfo           Code = 4000
	MapNoRAMsOfKind   Code = 4001
	MapNoRAMsOfStyle  Code = 4002
	MapAsyncWritePort Code = 4003

	// I/O
	IOLoadFileError Code = 5000
)

func (c Code) String() string {
	return fmt.Sprintf("CM%04d", uint16(c))
}
