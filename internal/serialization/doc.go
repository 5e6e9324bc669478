// Package serialization stores and restores named model parameters.
//
// The .embn format is a single self-describing binary file:
//
//	Fixed header (64 bytes):
//	  0x00  [4]  Magic "EMBN"
//	  0x04  [4]  Version (uint32 LE)
//	  0x08  [4]  Flags (uint32 LE)
//	  0x0C  [4]  Reserved
//	  0x10  [8]  Header size (uint64 LE)
//	  0x18  [8]  Data size (uint64 LE)
//	  0x20  [32] SHA-256 of the data section
//	[Header: JSON]
//	[Padding to a 64-byte boundary]
//	[Data: float64 little-endian, tensors back to back in header order]
//
// Tensors are written in sorted name order, so saving the same parameters
// twice yields identical data sections.
//
// Example usage:
//
//	err := serialization.Save("model.embn", model.StateDict(), serialization.Meta{
//	    ModelType: "recommender",
//	})
//
//	state, header, err := serialization.Load("model.embn")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = model.LoadStateDict(state)
package serialization
