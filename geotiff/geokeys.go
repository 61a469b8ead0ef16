package geotiff

import "errors"

var errParse = errors.New("parse error")

// A GeoKey is a GeoTIFF key.
type GeoKey uint16

const (
	GeoKeyGTModelType    GeoKey = 1024
	GeoKeyGTRasterType   GeoKey = 1025
	GeoKeyGeodeticCRS    GeoKey = 2048
	GeoKeyProjectedCRS   GeoKey = 3072
	GeoKeyVertical       GeoKey = 4096
	userDefinedGeoKeyCRS        = 32767
)

// parseGeoKeys parses the GeoKeyDirectoryTag and returns the keys whose values
// are stored in the directory itself. Keys whose values are stored in the
// GeoDoubleParamsTag or GeoASCIIParamsTag are skipped.
func parseGeoKeys(directory []uint16) (map[GeoKey]int, error) {
	if len(directory) < 4 {
		return nil, errParse
	}

	if keyDirectoryVersion := int(directory[0]); keyDirectoryVersion != 1 {
		return nil, errParse
	}
	if keyRevision := int(directory[1]); keyRevision != 1 {
		return nil, errParse
	}
	if minorRevision := int(directory[2]); minorRevision != 0 && minorRevision != 1 {
		return nil, errParse
	}
	numberOfKeys := int(directory[3])
	if len(directory) != 4+4*numberOfKeys {
		return nil, errParse
	}

	params := make(map[GeoKey]int)
	for i := range numberOfKeys {
		keyValues := directory[4+4*i : 4+4*(i+1)]
		key := GeoKey(keyValues[0])
		tiffTagLocation := int(keyValues[1])
		numberOfValues := int(keyValues[2])
		if tiffTagLocation != 0 {
			continue
		}
		if numberOfValues != 1 {
			return nil, errParse
		}
		params[key] = int(keyValues[3])
	}
	return params, nil
}

// sridFromGeoKeys returns the EPSG code of the CRS described by params, or
// zero if there is none or it is user-defined.
func sridFromGeoKeys(params map[GeoKey]int) int {
	for _, key := range []GeoKey{GeoKeyProjectedCRS, GeoKeyGeodeticCRS} {
		if srid, ok := params[key]; ok && srid != userDefinedGeoKeyCRS {
			return srid
		}
	}
	return 0
}
