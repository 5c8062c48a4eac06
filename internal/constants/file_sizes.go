// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package constants

const (
	MaxLineSizeBytes     = 1024 * 1024 // 1MB max line size for scanners
	LineBufferSize       = 5000        // rows written between flushes
	DefaultShardMaxLines = 1100        // records per shard for Split
	SplitFileMaxLines    = 200_000     // lines per shard for SplitFile
	DefaultBatchSize     = 1000        // records per distributed batch
)
