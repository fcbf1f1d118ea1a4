/*
Package maplejuice runs the two halves of a map/reduce pipeline as
independent, single-pass jobs.

A maple job scans an input file (a local path or an s3:// object) and emits
one "[key: value]" line per selected record. A juice job reads such lines back,
groups them by key in first-seen order and writes one aggregate per key. The
two stages share nothing but the intermediate file, so an outside
orchestrator can shard inputs and fan jobs out to many processes without
changing what a single job does.

Job variants are chosen with a Kind:

	MapleUnit, MapleFilter, MapleJoinColumn, MapleComposition
	JuiceUnit, JuiceFilter, JuiceJoin, JuiceComposition

Jobs never abort the process. Failures are returned as errors, and Message
renders them as user-facing "Error: ..." text.
*/
package maplejuice
