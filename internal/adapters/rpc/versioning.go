package rpc

import (
	"fmt"

	"ots/go-core/internal/abi"
)

// Requests may pin an api_version; omitting it means apiVersion.
const (
	apiVersion    = 1
	apiVersionMin = 1
)

// checkAPIVersion rejects pinned versions outside [apiVersionMin, apiVersion].
func checkAPIVersion(pinned *int) *rpcError {
	switch {
	case pinned == nil:
		return nil
	case *pinned < apiVersionMin:
		return &rpcError{Code: -32081, Message: fmt.Sprintf("api version %d retired, minimum is %d", *pinned, apiVersionMin)}
	case *pinned > apiVersion:
		return &rpcError{Code: -32080, Message: fmt.Sprintf("api version %d unknown, newest is %d", *pinned, apiVersion)}
	default:
		return nil
	}
}

type versionInfo struct {
	API    int    `json:"api_version"`
	MinAPI int    `json:"min_api_version"`
	Core   string `json:"core_version"`
	Major  int32  `json:"core_major"`
	Minor  int32  `json:"core_minor"`
	Patch  int32  `json:"core_patch"`
}

func newVersionInfo(v abi.VersionResult) versionInfo {
	return versionInfo{
		API:    apiVersion,
		MinAPI: apiVersionMin,
		Core:   abi.CString(v.Version[:]),
		Major:  v.Major,
		Minor:  v.Minor,
		Patch:  v.Patch,
	}
}
