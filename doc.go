// Package co2ml predicts vehicle CO2 emissions from a tabular dataset with
// tree ensembles, the way a Spark ML notebook would: nulls are dropped,
// categorical columns are string indexed and one-hot encoded, everything is
// assembled into one feature vector, the rows are split 70/30 with a seed,
// and a random forest and gradient-boosted trees are trained and scored.
//
// # Packages
//
//   - dataset: columnar frame on top of gota with CSV loading, DropNA and
//     seeded RandomSplit
//   - preprocessing: StringIndexer, OneHotEncoder, VectorAssembler and the
//     Pipeline that chains them
//   - sklearn/tree: CART regression tree over binned features
//   - sklearn/ensemble: RandomForestRegressor and GBTRegressor with boosting
//     callbacks (early stopping, evaluation history)
//   - metrics: RegressionEvaluator (rmse, mse, r2, mae, var)
//   - residual: residual columns, summaries and charts
//   - report: table display and parquet export
//   - synth: synthetic vehicle CO2 datasets
//   - internal/experiment: the end-to-end run used by cmd/co2ml
//
// # Quick Start
//
//	f, err := dataset.Load("co2.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	f = f.DropNA()
//
//	pm, err := preprocessing.NewFeaturePipeline(
//	    []string{"Make", "Fuel Type"},
//	    []string{"Engine Size(L)", "Cylinders"},
//	    "features",
//	).Fit(f)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	encoded, _ := pm.Transform(f)
//	parts, _ := encoded.RandomSplit([]float64{0.7, 0.3}, 0)
//
//	X, _ := parts[0].Vector("features")
//	labels, _ := parts[0].Floats("CO2 Emissions(g/km)")
//	gbt := ensemble.NewGBTRegressor().WithMaxIter(50)
//	if err := gbt.Fit(X, mat.NewDense(len(labels), 1, labels)); err != nil {
//	    log.Fatal(err)
//	}
//
// The command line tool runs the whole pipeline:
//
//	co2ml generate --rows 1000 --out co2.csv
//	co2ml run --data co2.csv --plot-dir charts
package co2ml
