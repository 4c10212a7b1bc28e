/*
Package startindex picks the PKTSTART packet index that synchronizes
recording start across a subarray's active processing nodes.

Each active node reports its own free-running PKTIDX; nodes can differ
by a few packets due to network jitter, so the selector takes the
median, discards values that stray more than a safety margin from it as
outliers, and starts recording at the largest surviving value plus the
same margin. That margin guarantees every healthy node still has slack
packets queued when its hashpipe instance arms at the chosen index.
*/
package startindex
