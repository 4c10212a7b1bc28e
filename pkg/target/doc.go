/*
Package target parses telescope target descriptions into the sanitized
source name and sexagesimal coordinate strings written into raw-file
headers.

A MeerKAT target string looks like

	J0918-1205 | Hyd A, radec, 9:18:05.28, -12:05:48.9

where everything before the "radec" tag names the source (possibly with
aliases separated by "|") and the two fields after it are right
ascension and declination. Downstream header fields are fixed-width
ASCII, so the source name is stripped of shell- and filesystem-hostile
punctuation and truncated before use.
*/
package target
