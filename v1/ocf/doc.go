// Package ocf reads the Avro Object Container File framing: the magic
// header, the embedded writer schema, and sync-marker-delimited data blocks
// with optional compression (null, deflate, snappy).
//
// The package stops at the row boundary. It hands out, per record, a binary
// decoder positioned at the start of that record's payload; decoding the
// record into columns is the row decoder's job (see v1/avrorow).
//
// Basic Usage:
//
//	import "github.com/Aleph-Alpha/avrocol/v1/ocf"
//
//	file, err := ocf.NewReader(f)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	schema := file.Schema()
//	for {
//	    dec, err := file.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    // consume exactly one record from dec
//	}
package ocf
