/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"strings"
	"time"
)

const (
	EnvelopeTransaction = "eqp_data"
	StatusParamKey      = "STATUS_MSG"

	reportTimeLayout = "2006-01-02T15:04:05.000"
	messageIDLayout  = "20060102150405.000"
)

// Envelope is the MES message carrying one patrol result.
type Envelope struct {
	TrxName string       `json:"trx_name"`
	RptTime string       `json:"rpt_time"`
	BoxCode string       `json:"box_code"`
	MsgID   string       `json:"msg_id"`
	Data    EnvelopeData `json:"data"`
}

type EnvelopeData struct {
	EqpCode     string  `json:"eqp_code"`
	ProductCode string  `json:"product_code"`
	Params      []Param `json:"params"`
}

type Param struct {
	K string `json:"k"`
	V string `json:"v"`
}

// NewEnvelope wraps a result record for the MES.
func NewEnvelope(r *ResultRecord, now time.Time) Envelope {
	return Envelope{
		TrxName: EnvelopeTransaction,
		RptTime: now.Format(reportTimeLayout),
		BoxCode: r.Code,
		MsgID:   strings.Replace(now.Format(messageIDLayout), ".", "", 1),
		Data: EnvelopeData{
			EqpCode: r.Code,
			Params:  []Param{{K: StatusParamKey, V: r.Describe}},
		},
	}
}
