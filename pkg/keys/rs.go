package keys

import "fmt"

// Reed-Solomon(80,48) over GF(256): 48 data bytes, 32 parity bytes, able to
// correct up to 16 byte errors at unknown positions (t = parity/2). This is
// hand-implemented because the unknown-position ("blind") correction this
// component needs is a different problem from the erasure coding (known
// missing shards) that every Reed-Solomon library in the ecosystem's RAID/
// storage niche (e.g. klauspost/reedsolomon) targets — those reconstruct
// shards you mark as missing, they don't locate corruption in shards you
// believe are present. The systematic-encode / syndrome-decode construction
// below follows the standard reference algorithm for RS codes over GF(256)
// (as used by QR codes and DVDs), grounded in the semantics of the original
// implementation's reed_solomon-based key ECC even though the byte counts
// here reflect the authoritative spec rather than that crate's 96-byte
// layout (see DESIGN.md).

const (
	rsDataLen   = 48
	rsParityLen = 32
	rsTotalLen  = rsDataLen + rsParityLen
	rsMaxErrors = rsParityLen / 2
)

// ErrTooManyECCErrors indicates the Reed-Solomon decoder found more errors
// than it can guarantee to correct.
var ErrTooManyECCErrors = fmt.Errorf("reed-solomon: too many errors to correct")

// rsGeneratorPoly returns the generator polynomial for nsym parity symbols:
// product over i=0..nsym-1 of (x - alpha^i), coefficients highest-degree first.
func rsGeneratorPoly(nsym int) []byte {
	g := []byte{1}
	for i := 0; i < nsym; i++ {
		g = gfPolyMul(g, []byte{1, gfPow(2, i)})
	}
	return g
}

// rsEncode appends rsParityLen parity bytes to a rsDataLen-byte message,
// producing a systematic (data || parity) codeword of length rsTotalLen.
func rsEncode(data []byte) []byte {
	if len(data) != rsDataLen {
		panic("keys: rsEncode requires exactly 48 bytes of data")
	}
	gen := rsGeneratorPoly(rsParityLen)

	remainder := make([]byte, rsDataLen+rsParityLen)
	copy(remainder, data)

	for i := 0; i < rsDataLen; i++ {
		coef := remainder[i]
		if coef == 0 {
			continue
		}
		for j := 1; j < len(gen); j++ {
			remainder[i+j] ^= gfMul(gen[j], coef)
		}
	}

	out := make([]byte, rsTotalLen)
	copy(out, data)
	copy(out[rsDataLen:], remainder[rsDataLen:])
	return out
}

// rsSyndromes computes the 2t = rsParityLen syndrome values for a received
// codeword. All zero means the codeword is error-free.
func rsSyndromes(msg []byte) []byte {
	synd := make([]byte, rsParityLen)
	for i := 0; i < rsParityLen; i++ {
		synd[i] = gfPolyEval(msg, gfPow(2, i))
	}
	return synd
}

func rsSyndromesAllZero(synd []byte) bool {
	for _, s := range synd {
		if s != 0 {
			return false
		}
	}
	return true
}

// rsErrorLocator runs Berlekamp-Massey over the syndromes to find the error
// locator polynomial. Its degree (minus one) is the number of errors found.
func rsErrorLocator(synd []byte) ([]byte, error) {
	errLoc := []byte{1}
	oldLoc := []byte{1}

	for i := 0; i < rsParityLen; i++ {
		oldLoc = append(oldLoc, 0)

		delta := synd[i]
		for j := 1; j < len(errLoc); j++ {
			delta ^= gfMul(errLoc[len(errLoc)-1-j], synd[i-j])
		}

		if delta != 0 {
			if len(oldLoc) > len(errLoc) {
				newLoc := gfPolyScale(oldLoc, delta)
				oldLoc = gfPolyScale(errLoc, gfInverse(delta))
				errLoc = newLoc
			}
			errLoc = gfPolyAdd(errLoc, gfPolyScale(oldLoc, delta))
		}
	}

	// Strip any leading zero coefficients left over from the recurrence.
	start := 0
	for start < len(errLoc)-1 && errLoc[start] == 0 {
		start++
	}
	errLoc = errLoc[start:]

	errs := len(errLoc) - 1
	if errs > rsMaxErrors {
		return nil, ErrTooManyECCErrors
	}
	return errLoc, nil
}

// rsFindErrorPositions runs a Chien search over the full codeword length to
// find the roots of the error locator polynomial, returning the (0-indexed,
// high-degree-first) positions of errors within msg.
func rsFindErrorPositions(errLoc []byte, msgLen int) ([]int, error) {
	errs := len(errLoc) - 1
	if errs == 0 {
		return nil, nil
	}

	var positions []int
	for i := 0; i < msgLen; i++ {
		// errLoc has roots at the inverses of the error-location powers;
		// position i (from the start of msg) corresponds to alpha^(msgLen-1-i).
		x := gfExpTable[255-i]
		if gfPolyEval(errLoc, x) == 0 {
			positions = append(positions, msgLen-1-i)
		}
	}

	if len(positions) != errs {
		return nil, ErrTooManyECCErrors
	}
	return positions, nil
}

// rsCorrectErrors corrects msg in place given previously located error
// positions (0-indexed array positions within msg). With the error
// locations already known from the Chien search, each syndrome is a linear
// combination of the (unknown) error magnitudes:
//
//	S_j = sum_i e_i * X_i^j,   j = 0 .. len(positions)-1
//
// where X_i = alpha^(len(msg)-1-positions[i]). This is a square Vandermonde
// system in the e_i (distinct X_i guarantee it's non-singular), solved here
// by straightforward Gaussian elimination over GF(256) rather than the
// Forney formula — algebraically equivalent, easier to verify by hand.
func rsCorrectErrors(msg, synd []byte, positions []int) error {
	t := len(positions)
	if t == 0 {
		return nil
	}

	x := make([]byte, t)
	for i, p := range positions {
		x[i] = gfPow(2, len(msg)-1-p)
	}

	// Build the augmented matrix [X_i^j | S_j] for j = 0..t-1.
	matrix := make([][]byte, t)
	for j := 0; j < t; j++ {
		row := make([]byte, t+1)
		for i := 0; i < t; i++ {
			row[i] = gfPow(x[i], j)
		}
		row[t] = synd[j]
		matrix[j] = row
	}

	// Gaussian elimination with partial pivoting.
	for col := 0; col < t; col++ {
		pivot := -1
		for row := col; row < t; row++ {
			if matrix[row][col] != 0 {
				pivot = row
				break
			}
		}
		if pivot == -1 {
			return ErrTooManyECCErrors
		}
		matrix[col], matrix[pivot] = matrix[pivot], matrix[col]

		inv := gfInverse(matrix[col][col])
		for k := col; k <= t; k++ {
			matrix[col][k] = gfMul(matrix[col][k], inv)
		}

		for row := 0; row < t; row++ {
			if row == col || matrix[row][col] == 0 {
				continue
			}
			factor := matrix[row][col]
			for k := col; k <= t; k++ {
				matrix[row][k] ^= gfMul(factor, matrix[col][k])
			}
		}
	}

	for i, p := range positions {
		msg[p] ^= matrix[i][t]
	}
	return nil
}

// rsDecode attempts to correct a received rsTotalLen-byte codeword in place
// and returns the rsDataLen-byte data portion plus whether any correction
// was applied.
func rsDecode(msg []byte) (data []byte, corrected bool, err error) {
	if len(msg) != rsTotalLen {
		return nil, false, fmt.Errorf("keys: rsDecode requires exactly %d bytes, got %d", rsTotalLen, len(msg))
	}

	work := make([]byte, len(msg))
	copy(work, msg)

	synd := rsSyndromes(work)
	if rsSyndromesAllZero(synd) {
		return work[:rsDataLen], false, nil
	}

	errLoc, err := rsErrorLocator(synd)
	if err != nil {
		return nil, false, err
	}

	positions, err := rsFindErrorPositions(errLoc, len(work))
	if err != nil {
		return nil, false, err
	}

	if err := rsCorrectErrors(work, synd, positions); err != nil {
		return nil, false, err
	}

	// Verify the correction actually zeroed the syndromes; if not, treat it
	// as uncorrectable rather than returning silently-wrong data.
	if !rsSyndromesAllZero(rsSyndromes(work)) {
		return nil, false, ErrTooManyECCErrors
	}

	return work[:rsDataLen], true, nil
}
