// Package serializertest checks that a serializer format honors the
// lifecycle contract. A format package calls Run from its own tests:
//
//	func TestConformance(t *testing.T) {
//	    serializertest.Run(t, serializertest.Suite{
//	        NewBuilder: func() serializer.Builder { return Builder{} },
//	        Decode:     decodeEntries,
//	    })
//	}
//
// Run drives the format through lifecycle.Session, so every call it makes
// is one a correct driver could make. MemDriver reproduces the file
// driver's create, reopen and roll decisions in memory, and Recorder and
// FailingWriter let tests observe hooks and inject sink failures.
package serializertest
