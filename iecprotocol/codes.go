package iecprotocol

// OpenState is what the host service said the next TALK on a data channel
// should deliver.
type OpenState byte

const (
	OpenNothing OpenState = iota
	OpenInfo
	OpenFile
	OpenDir
	OpenFileErr
	OpenSaveReplace
)

// String returns the name of the state.
func (s OpenState) String() string {
	switch s {
	case OpenNothing:
		return "nothing"
	case OpenInfo:
		return "info"
	case OpenFile:
		return "file"
	case OpenDir:
		return "dir"
	case OpenFileErr:
		return "file error"
	case OpenSaveReplace:
		return "save replace"
	default:
		return "unknown"
	}
}

// IOError is a DOS result code. The host service turns it into the status
// string the host computer reads from the command channel.
type IOError byte

const (
	ErrOK IOError = iota
	ErrReadError
	ErrWriteProtectOn
	ErrFileNotOpen
	ErrFileNotFound
	ErrFileExists
	ErrSyntaxError
	ErrIllegalTrackOrSector
	ErrDriveNotReady
	ErrSerialComm
	ErrNotImplemented
	// ErrIntro is queued after reset so the first status read reports the
	// DOS version.
	ErrIntro
)

// String returns the conventional DOS code and text of the result.
func (e IOError) String() string {
	switch e {
	case ErrOK:
		return "00, OK"
	case ErrReadError:
		return "20, READ ERROR"
	case ErrWriteProtectOn:
		return "26, WRITE PROTECT ON"
	case ErrFileNotOpen:
		return "61, FILE NOT OPEN"
	case ErrFileNotFound:
		return "62, FILE NOT FOUND"
	case ErrFileExists:
		return "63, FILE EXISTS"
	case ErrSyntaxError:
		return "30, SYNTAX ERROR"
	case ErrIllegalTrackOrSector:
		return "66, ILLEGAL TRACK OR SECTOR"
	case ErrDriveNotReady:
		return "74, DRIVE NOT READY"
	case ErrSerialComm:
		return "97, SERIAL COMM ERROR"
	case ErrNotImplemented:
		return "31, NOT IMPLEMENTED"
	case ErrIntro:
		return "73, DOS VERSION"
	default:
		return "99, UNKNOWN"
	}
}
