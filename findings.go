package x837

import "fmt"

// LocatedFinding pairs a Finding with a breadcrumb describing where in the
// document it was attached, e.g. "Segment NM1*82*... (Line: 14)" or
// "Loop ST_LOOP/2000B[1]/2300[0]".
type LocatedFinding struct {
	Location string
	Finding  Finding
}

// CollectFindings walks interchange in source order — interchange, then
// each functional group, then each transaction, then each transaction's
// body loop recursively — and returns every Finding attached anywhere in
// the tree paired with a breadcrumb identifying its location, per the
// Error Aggregator.
func CollectFindings(interchange *Interchange) []LocatedFinding {
	var out []LocatedFinding

	for _, f := range interchange.Findings {
		out = append(out, LocatedFinding{Location: "Interchange", Finding: f})
	}
	collectSegmentFindings(interchange.Header, "Interchange", &out)

	for _, group := range interchange.Groups {
		for _, f := range group.Findings {
			out = append(out, LocatedFinding{Location: "Functional Group", Finding: f})
		}
		collectSegmentFindings(group.Header, "Functional Group", &out)

		for _, tx := range group.Transactions {
			for _, f := range tx.Findings {
				out = append(out, LocatedFinding{Location: "Transaction", Finding: f})
			}
			collectSegmentFindings(tx.Header, "Transaction", &out)

			if tx.Body != nil {
				collectLoopFindings(tx.Body, "ST_LOOP", &out)
			}
			collectSegmentFindings(tx.Trailer, "Transaction", &out)
		}
		collectSegmentFindings(group.Trailer, "Functional Group", &out)
	}
	collectSegmentFindings(interchange.Trailer, "Interchange", &out)

	return out
}

func collectSegmentFindings(seg *Segment, location string, out *[]LocatedFinding) {
	if seg == nil {
		return
	}
	for _, f := range seg.Findings {
		*out = append(*out, LocatedFinding{Location: location, Finding: f})
	}
}

func collectLoopFindings(loop *Loop, path string, out *[]LocatedFinding) {
	for _, f := range loop.Findings {
		*out = append(*out, LocatedFinding{Location: fmt.Sprintf("Loop %s", path), Finding: f})
	}
	for _, seg := range loop.Segments {
		for _, f := range seg.Findings {
			*out = append(*out, LocatedFinding{
				Location: fmt.Sprintf("Segment %s (Line: %d)", seg.Raw, seg.Line),
				Finding:  f,
			})
		}
	}
	for _, xid := range loop.ChildXids() {
		for i, child := range loop.GetLoops(xid) {
			collectLoopFindings(child, fmt.Sprintf("%s/%s[%d]", path, xid, i), out)
		}
	}
}
